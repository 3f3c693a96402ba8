package controllers

import (
	"context"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/upload"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
)

// CacheInvalidator drops cached aggregates after the ledger changes
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type PaymentController struct {
	payments *payment.Service
	proofs   *upload.ProofUploader
	stats    CacheInvalidator
}

// NewPaymentController wires the payment handlers. proofs and stats may be nil.
func NewPaymentController(payments *payment.Service, proofs *upload.ProofUploader, stats CacheInvalidator) *PaymentController {
	return &PaymentController{payments: payments, proofs: proofs, stats: stats}
}

type initiateRequest struct {
	Month       int     `json:"month" validate:"required,min=1,max=12"`
	Year        int     `json:"year" validate:"required,min=2000,max=2100"`
	PaymentMode string  `json:"paymentMode"`
	ProofURL    *string `json:"proofUrl"`
}

type submitProofRequest struct {
	PaymentID        uint    `json:"paymentId" validate:"required"`
	UPITransactionID *string `json:"upiTransactionId"`
	ProofURL         *string `json:"proofUrl"`
}

type adminConfirmRequest struct {
	PaymentID uint `json:"paymentId" validate:"required"`
}

func (pc *PaymentController) HandleUPIConfig(c *fiber.Ctx) error {
	return c.JSON(pc.payments.UPIConfig())
}

// HandleInitiate opens (or reopens) the caller's payment for a month
func (pc *PaymentController) HandleInitiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := pc.payments.InitiateForUser(c.UserContext(), usercontext.GetUserID(c), payment.InitiateInput{
		Month:       req.Month,
		Year:        req.Year,
		PaymentMode: req.PaymentMode,
		ProofURL:    req.ProofURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// HandleSubmitProof attaches the payer's UPI reference and screenshot. The payment stays PENDING.
func (pc *PaymentController) HandleSubmitProof(c *fiber.Ctx) error {
	var req submitProofRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	p, err := pc.payments.SubmitProof(c.UserContext(), usercontext.GetUserID(c), req.PaymentID, payment.SubmitProofInput{
		UPITransactionID: req.UPITransactionID,
		ProofURL:         req.ProofURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "payment proof submitted, awaiting admin confirmation",
		"payment": p,
	})
}

// HandleUploadProof stores a screenshot from the multipart field "file"
func (pc *PaymentController) HandleUploadProof(c *fiber.Ctx) error {
	if pc.proofs == nil {
		return respondError(c, apperr.InvalidState("proof uploads are not configured"))
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperr.InvalidInput("no file uploaded"))
	}
	if fh.Size > upload.MaxProofSize {
		return respondError(c, apperr.InvalidInput("file exceeds the %d MB limit", upload.MaxProofSize>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindInternal, err, "open upload"))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, upload.MaxProofSize+1))
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindInternal, err, "read upload"))
	}

	url, err := pc.proofs.Upload(c.UserContext(), fh.Filename, data)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"publicUrl": url})
}

func (pc *PaymentController) HandleVerify(c *fiber.Ctx) error {
	p, err := pc.payments.GetByTransactionID(c.UserContext(), usercontext.GetPrincipal(c), c.Params("transactionId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  p.Status,
		"payment": p,
	})
}

func (pc *PaymentController) HandleMyPayments(c *fiber.Ctx) error {
	payments, err := pc.payments.ListForUser(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payments)
}

// HandleAdminConfirm marks a payment PAID. The receipt outcome is reported next to the payment.
func (pc *PaymentController) HandleAdminConfirm(c *fiber.Ctx) error {
	var req adminConfirmRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := pc.payments.Confirm(c.UserContext(), req.PaymentID)
	if err != nil {
		return respondError(c, err)
	}
	if pc.stats != nil {
		pc.stats.Invalidate(c.UserContext())
	}
	if res.ReceiptErr != nil {
		log.Warnf("[Payments] Payment %d confirmed without receipt: %v", req.PaymentID, res.ReceiptErr)
	}
	return c.JSON(fiber.Map{
		"message":      "payment confirmed",
		"payment":      res.Payment,
		"receipt":      res.Receipt,
		"receiptError": res.ReceiptError,
	})
}

// HandleListAll serves the admin ledger view, filtered by month, year, status and flatId
func (pc *PaymentController) HandleListAll(c *fiber.Ctx) error {
	filter, err := paymentFilterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := pc.payments.ListAll(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

func paymentFilterFromQuery(c *fiber.Ctx) (repository.PaymentFilter, error) {
	var filter repository.PaymentFilter
	month, err := queryInt(c, "month")
	if err != nil {
		return filter, err
	}
	if month < 0 || month > 12 {
		return filter, apperr.InvalidInput("month must be between 1 and 12")
	}
	year, err := queryInt(c, "year")
	if err != nil {
		return filter, err
	}
	flatID, err := queryInt(c, "flatId")
	if err != nil {
		return filter, err
	}
	if flatID < 0 {
		return filter, apperr.InvalidInput("flatId must be positive")
	}

	filter.Month, filter.Year, filter.FlatID = month, year, uint(flatID)
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		switch status := models.PaymentStatus(raw); status {
		case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed:
			filter.Status = status
		default:
			return filter, apperr.InvalidInput("unknown status %q", raw)
		}
	}
	return filter, nil
}
