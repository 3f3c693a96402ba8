package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
)

// YearProvisioner creates the twelve billing months of a year, skipping existing ones
type YearProvisioner interface {
	ProvisionYear(year int) (int64, error)
}

type MaintenanceController struct {
	payments *payment.Service
	years    YearProvisioner
}

func NewMaintenanceController(payments *payment.Service, years YearProvisioner) *MaintenanceController {
	return &MaintenanceController{payments: payments, years: years}
}

type createMonthRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
}

type provisionYearRequest struct {
	Year int `json:"year" validate:"required,min=2000,max=2100"`
}

func (mc *MaintenanceController) HandleCreateMonth(c *fiber.Ctx) error {
	var req createMonthRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	month, err := mc.payments.CreateMonth(c.UserContext(), req.Month, req.Year)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(month)
}

func (mc *MaintenanceController) HandleProvisionYear(c *fiber.Ctx) error {
	var req provisionYearRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	created, err := mc.years.ProvisionYear(req.Year)
	if err != nil {
		return respondError(c, apperr.FromStorage(err, "provision year"))
	}
	return c.JSON(fiber.Map{
		"year":    req.Year,
		"created": created,
	})
}

func (mc *MaintenanceController) HandleListMonths(c *fiber.Ctx) error {
	months, err := mc.payments.ListMonths(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(months)
}

// HandleCurrentMonth returns null until the current month has been provisioned
func (mc *MaintenanceController) HandleCurrentMonth(c *fiber.Ctx) error {
	month, err := mc.payments.CurrentMonth(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(month)
}
