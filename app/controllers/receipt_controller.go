package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/receipt"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
)

type ReceiptController struct {
	issuer *receipt.Issuer
}

func NewReceiptController(issuer *receipt.Issuer) *ReceiptController {
	return &ReceiptController{issuer: issuer}
}

// HandleGenerateMissing issues receipts for every PAID payment that has none
func (rc *ReceiptController) HandleGenerateMissing(c *fiber.Ctx) error {
	res, err := rc.issuer.BackfillMissing(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("Generated %d receipts", res.Success),
		"total":    res.Total,
		"success":  res.Success,
		"failed":   res.Failed,
		"receipts": res.Receipts,
		"errors":   res.Errors,
	})
}

func (rc *ReceiptController) HandleIssue(c *fiber.Ctx) error {
	paymentID, err := paramID(c, "paymentId")
	if err != nil {
		return respondError(c, err)
	}
	res, err := rc.issuer.Issue(c.UserContext(), paymentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (rc *ReceiptController) HandleMyReceipts(c *fiber.Ctx) error {
	receipts, err := rc.issuer.ListForUser(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(receipts)
}

func (rc *ReceiptController) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, err := rc.issuer.GetForUser(c.UserContext(), usercontext.GetPrincipal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(r)
}

// HandleDownload renders the receipt PDF on demand
func (rc *ReceiptController) HandleDownload(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	doc, err := rc.issuer.Document(c.UserContext(), usercontext.GetPrincipal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Send(doc.Data)
}
