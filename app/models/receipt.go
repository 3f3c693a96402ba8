package models

import "time"

// Receipt is issued once per PAID payment.
type Receipt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PaymentID     uint      `gorm:"not null;uniqueIndex" json:"payment_id"`
	Payment       *Payment  `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	ReceiptNumber string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"receipt_number"`
	EmailSent     bool      `gorm:"not null;default:false" json:"email_sent"`
	DocumentURL   *string   `gorm:"type:varchar(500);default:null" json:"document_url"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
