package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/account"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
)

type FlatController struct {
	accounts *account.Service
}

func NewFlatController(accounts *account.Service) *FlatController {
	return &FlatController{accounts: accounts}
}

type createFlatRequest struct {
	FlatNumber         string          `json:"flatNumber" validate:"required,max=20"`
	MonthlyMaintenance decimal.Decimal `json:"monthlyMaintenance"`
}

type assignFlatRequest struct {
	UserID uint `json:"userId" validate:"required"`
	FlatID uint `json:"flatId" validate:"required"`
}

type maintenanceRequest struct {
	MonthlyMaintenance decimal.Decimal `json:"monthlyMaintenance"`
}

func (fc *FlatController) HandleCreate(c *fiber.Ctx) error {
	var req createFlatRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	flat, err := fc.accounts.CreateFlat(c.UserContext(), account.CreateFlatInput{
		FlatNumber:         req.FlatNumber,
		MonthlyMaintenance: req.MonthlyMaintenance,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(flat)
}

// HandleAssign moves a user into a flat and opens the current month's charge for it
func (fc *FlatController) HandleAssign(c *fiber.Ctx) error {
	var req assignFlatRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := fc.accounts.AssignFlat(c.UserContext(), req.UserID, req.FlatID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "flat assigned successfully",
		"flat":           res.Flat,
		"paymentCreated": res.PaymentCreated,
	})
}

func (fc *FlatController) HandleList(c *fiber.Ctx) error {
	flats, err := fc.accounts.ListFlats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(flats)
}

// HandleUpdateMaintenance reprices a flat. Open charges follow the new amount, PAID ones keep theirs.
func (fc *FlatController) HandleUpdateMaintenance(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req maintenanceRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	repriced, err := fc.accounts.UpdateFlatMaintenance(c.UserContext(), id, req.MonthlyMaintenance)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":            "maintenance updated successfully",
		"flatId":             id,
		"monthlyMaintenance": req.MonthlyMaintenance,
		"updatedPayments":    repriced,
	})
}

// HandleMyFlat returns null when the caller has no flat
func (fc *FlatController) HandleMyFlat(c *fiber.Ctx) error {
	flat, err := fc.accounts.MyFlat(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(flat)
}
