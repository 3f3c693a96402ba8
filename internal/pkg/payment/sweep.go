package payment

import (
	"context"
	"errors"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ensurePending makes sure flatID has a payment for month. Existing payments
// of any status are left as they are.
func (s *Service) ensurePending(flatID uint, month *models.MaintenanceMonth) (*models.Payment, bool, error) {
	existing, err := s.repos.Payment.GetByFlatAndMonth(flatID, month.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	flat, err := s.repos.Flat.GetByID(flatID)
	if err != nil {
		return nil, false, err
	}
	p := &models.Payment{
		FlatID:             flat.ID,
		MaintenanceMonthID: month.ID,
		Amount:             flat.MonthlyMaintenance,
		Status:             models.PaymentStatusPending,
		PaymentMode:        models.DefaultPaymentMode,
	}
	if err := s.repos.Payment.Create(p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Someone else created it between the read and the insert.
			existing, gerr := s.repos.Payment.GetByFlatAndMonth(flatID, month.ID)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) currentMonth() (*models.MaintenanceMonth, error) {
	month, year := s.CurrentPeriod()
	m, err := s.repos.MaintenanceMonth.GetOrCreate(month, year)
	if err != nil {
		return nil, apperr.FromStorage(err, "prepare maintenance month")
	}
	return m, nil
}

// EnsurePendingForUser creates the current month's payment for the user's flat
// if it does not exist yet. The bool reports whether a row was created.
func (s *Service) EnsurePendingForUser(ctx context.Context, userID uint) (*models.Payment, bool, error) {
	_ = ctx
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, false, apperr.FromStorage(err, "user not found")
	}
	if !user.HasFlat() {
		return nil, false, apperr.InvalidState("user %d has no flat", userID)
	}
	month, err := s.currentMonth()
	if err != nil {
		return nil, false, err
	}
	p, created, err := s.ensurePending(*user.FlatID, month)
	if err != nil {
		return nil, false, apperr.FromStorage(err, "create pending payment")
	}
	if created {
		log.Infof("[Payments] Created pending payment %d for user %d (%s)", p.ID, userID, month.Label())
	}
	return p, created, nil
}

// GenerateMonthlyPending ensures every occupied flat has a payment for the
// current month. Each occupant is attempted independently; failures are
// counted and described, never retried here.
func (s *Service) GenerateMonthlyPending(ctx context.Context) (*GenerationResult, error) {
	_ = ctx
	month, err := s.currentMonth()
	if err != nil {
		return nil, err
	}
	occupants, err := s.repos.User.ListOccupants()
	if err != nil {
		return nil, apperr.FromStorage(err, "list occupants")
	}

	result := &GenerationResult{Period: month.Period(), Total: len(occupants)}
	for _, u := range occupants {
		if !u.HasFlat() {
			continue
		}
		_, created, err := s.ensurePending(*u.FlatID, month)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, ItemError{UserID: u.ID, FlatID: *u.FlatID, Error: err.Error()})
			log.Errorf("[Payments] Pending payment for user %d failed: %v", u.ID, err)
		case created:
			result.Created++
		default:
			result.Existing++
		}
	}

	log.Infof("[Payments] Monthly generation %s: total=%d created=%d existing=%d failed=%d",
		result.Period, result.Total, result.Created, result.Existing, result.Failed)
	return result, nil
}

// FailOverduePending moves the current month's PENDING payments to FAILED.
// Through day GraceDays of the month nothing happens.
func (s *Service) FailOverduePending(ctx context.Context) (*OverdueResult, error) {
	_ = ctx
	now := s.now().In(s.loc)
	month, year := int(now.Month()), now.Year()
	result := &OverdueResult{Period: models.Period(month, year)}

	if now.Day() <= GraceDays {
		result.Skipped = true
		return result, nil
	}

	m, err := s.repos.MaintenanceMonth.Get(month, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, apperr.FromStorage(err, "load maintenance month")
	}

	n, err := s.repos.Payment.FailPendingForMonth(m.ID)
	if err != nil {
		return nil, apperr.FromStorage(err, "mark overdue payments")
	}
	result.Updated = n
	if n > 0 {
		log.Infof("[Payments] Marked %d overdue payments as FAILED for %s", n, result.Period)
	}
	return result, nil
}
