package payment

import (
	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
)

// GraceDays is the last day of a month on which PENDING payments are not yet overdue.
const GraceDays = 10

var paymentModes = map[string]struct{}{
	"UPI":           {},
	"CASH":          {},
	"BANK_TRANSFER": {},
	"CHEQUE":        {},
}

// UPIConfig is handed to payers so they can pay outside the system
type UPIConfig struct {
	UPIID        string `json:"upiId"`
	ReceiverName string `json:"receiverName"`
}

func UPIConfigFromEnv() UPIConfig {
	return UPIConfig{
		UPIID:        env.GetEnv("UPI_ID", "society@paytm"),
		ReceiverName: env.GetEnv("UPI_RECEIVER_NAME", "ABC Housing Society"),
	}
}

type InitiateInput struct {
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	PaymentMode string  `json:"paymentMode"`
	ProofURL    *string `json:"proofUrl"`
}

type InitiateResult struct {
	Payment *models.Payment `json:"payment"`
	UPI     UPIConfig       `json:"upiConfig"`
}

type SubmitProofInput struct {
	UPITransactionID *string `json:"upiTransactionId"`
	ProofURL         *string `json:"proofUrl"`
}

// ConfirmResult reports the confirmation and, separately, the receipt step.
// A receipt failure never undoes the confirmation.
type ConfirmResult struct {
	Payment      *models.Payment `json:"payment"`
	Receipt      *models.Receipt `json:"receipt,omitempty"`
	ReceiptError string          `json:"receiptError,omitempty"`
	ReceiptErr   error           `json:"-"`
}

// ItemError describes one failed item of a bulk sweep
type ItemError struct {
	UserID uint   `json:"userId,omitempty"`
	FlatID uint   `json:"flatId,omitempty"`
	Error  string `json:"error"`
}

// GenerationResult summarises a monthly generation run
type GenerationResult struct {
	Period   string      `json:"period"`
	Total    int         `json:"total"`
	Created  int         `json:"created"`
	Existing int         `json:"existing"`
	Failed   int         `json:"failed"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// OverdueResult summarises an overdue sweep. Skipped is true inside the grace window.
type OverdueResult struct {
	Period  string `json:"period"`
	Updated int64  `json:"updated"`
	Skipped bool   `json:"skipped"`
}
