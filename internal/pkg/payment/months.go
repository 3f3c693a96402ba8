package payment

import (
	"context"
	"errors"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// CreateMonth provisions a single billing period.
func (s *Service) CreateMonth(ctx context.Context, month, year int) (*models.MaintenanceMonth, error) {
	_ = ctx
	if !models.ValidPeriod(month, year) {
		return nil, apperr.InvalidInput("valid month and year are required")
	}
	m := &models.MaintenanceMonth{Month: month, Year: year}
	if err := s.repos.MaintenanceMonth.Create(m); err != nil {
		return nil, apperr.FromStorage(err, "maintenance month already exists")
	}
	log.Infof("[Payments] Created maintenance month %s", m.Label())
	return m, nil
}

// CurrentMonth returns the billing period of today, nil when it was not provisioned.
func (s *Service) CurrentMonth(ctx context.Context) (*models.MaintenanceMonth, error) {
	_ = ctx
	month, year := s.CurrentPeriod()
	m, err := s.repos.MaintenanceMonth.Get(month, year)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStorage(err, "load maintenance month")
	}
	return m, nil
}

func (s *Service) ListMonths(ctx context.Context) ([]models.MaintenanceMonth, error) {
	_ = ctx
	months, err := s.repos.MaintenanceMonth.List()
	if err != nil {
		return nil, apperr.FromStorage(err, "list maintenance months")
	}
	return months, nil
}
