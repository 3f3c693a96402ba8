package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CacheKeyDashboard = "statistics:dashboard:%s" // period YYYY-MM
	CacheExpiration   = 5 * time.Minute
)

// Dashboard is the admin summary of the current billing period
type Dashboard struct {
	Period        string          `json:"period"`
	TotalFlats    int64           `json:"totalFlats"`
	OccupiedFlats int64           `json:"occupiedFlats"`
	TotalUsers    int64           `json:"totalUsers"`
	Paid          int64           `json:"paid"`
	Pending       int64           `json:"pending"`
	Failed        int64           `json:"failed"`
	Collected     decimal.Decimal `json:"collected"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// PeriodSource tells the current billing month and year
type PeriodSource interface {
	CurrentPeriod() (int, int)
}

type Service struct {
	repos  *repository.Repositories
	client *redis.Client
	period PeriodSource
	now    func() time.Time
}

// NewService builds the dashboard service. client may be nil to disable caching.
func NewService(repos *repository.Repositories, client *redis.Client, period PeriodSource) *Service {
	return &Service{repos: repos, client: client, period: period, now: time.Now}
}

// Dashboard returns the cached summary or recomputes it on a miss or when Redis is down.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	month, year := s.period.CurrentPeriod()
	key := fmt.Sprintf(CacheKeyDashboard, models.Period(month, year))

	if s.client != nil {
		var cached Dashboard
		data, err := s.client.Get(ctx, key).Bytes()
		if err == nil && json.Unmarshal(data, &cached) == nil {
			return &cached, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warnf("[Statistics] Cache read failed: %v", err)
		}
	}

	d, err := s.compute(month, year)
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		if data, merr := json.Marshal(d); merr == nil {
			if err := s.client.Set(ctx, key, data, CacheExpiration).Err(); err != nil {
				log.Warnf("[Statistics] Cache write failed: %v", err)
			}
		}
	}
	return d, nil
}

// Invalidate drops the cached summary of the current period
func (s *Service) Invalidate(ctx context.Context) {
	if s.client == nil {
		return
	}
	month, year := s.period.CurrentPeriod()
	if err := s.client.Del(ctx, fmt.Sprintf(CacheKeyDashboard, models.Period(month, year))).Err(); err != nil {
		log.Warnf("[Statistics] Cache invalidation failed: %v", err)
	}
}

func (s *Service) compute(month, year int) (*Dashboard, error) {
	d := &Dashboard{Period: models.Period(month, year), Collected: decimal.Zero, GeneratedAt: s.now()}

	var err error
	if d.TotalFlats, err = s.repos.Flat.Count(); err != nil {
		return nil, apperr.FromStorage(err, "count flats")
	}
	if d.OccupiedFlats, err = s.repos.User.CountOccupants(); err != nil {
		return nil, apperr.FromStorage(err, "count occupants")
	}
	if d.TotalUsers, err = s.repos.User.Count(); err != nil {
		return nil, apperr.FromStorage(err, "count users")
	}

	m, err := s.repos.MaintenanceMonth.Get(month, year)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, nil
	}
	if err != nil {
		return nil, apperr.FromStorage(err, "load maintenance month")
	}
	counts, err := s.repos.Payment.CountByStatusForMonth(m.ID)
	if err != nil {
		return nil, apperr.FromStorage(err, "count payments")
	}
	d.Paid = counts[models.PaymentStatusPaid]
	d.Pending = counts[models.PaymentStatusPending]
	d.Failed = counts[models.PaymentStatusFailed]
	if d.Collected, err = s.repos.Payment.SumPaidForMonth(m.ID); err != nil {
		return nil, apperr.FromStorage(err, "sum payments")
	}
	return d, nil
}
