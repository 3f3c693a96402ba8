package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

const DefaultPaymentMode = "UPI"

// Payment is one flat's obligation for one maintenance month. At most one
// exists per (flat, month); the pair is enforced by idx_payment_flat_month.
type Payment struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	FlatID             uint              `gorm:"not null;uniqueIndex:idx_payment_flat_month,priority:1" json:"flat_id"`
	Flat               *Flat             `gorm:"foreignKey:FlatID" json:"flat,omitempty"`
	MaintenanceMonthID uint              `gorm:"not null;uniqueIndex:idx_payment_flat_month,priority:2" json:"maintenance_month_id"`
	MaintenanceMonth   *MaintenanceMonth `gorm:"foreignKey:MaintenanceMonthID" json:"maintenance_month,omitempty"`
	Amount             decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status             PaymentStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentMode        string            `gorm:"type:varchar(20);not null;default:'UPI'" json:"payment_mode"`
	TransactionID      *string           `gorm:"type:varchar(64);uniqueIndex" json:"transaction_id"`
	UPITransactionID   *string           `gorm:"column:upi_transaction_id;type:varchar(100);default:null" json:"upi_transaction_id"`
	ProofURL           *string           `gorm:"type:varchar(500);default:null" json:"proof_url"`
	PaidAt             *time.Time        `gorm:"default:null" json:"paid_at"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// AwaitingReview is a PENDING payment that already carries proof.
func (p *Payment) AwaitingReview() bool {
	if p.Status != PaymentStatusPending {
		return false
	}
	return (p.ProofURL != nil && *p.ProofURL != "") || (p.UPITransactionID != nil && *p.UPITransactionID != "")
}

// PaymentWithOccupant is a ledger row enriched with whoever occupies the flat now.
type PaymentWithOccupant struct {
	Payment
	Occupant *User `json:"user"`
}
