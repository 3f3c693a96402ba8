package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Flat is a billable unit. Owner details are not stored here; they are read
// from the current occupant (see FlatWithOwner).
type Flat struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	FlatNumber         string          `gorm:"uniqueIndex;type:varchar(20);not null" json:"flat_number" validate:"required,max=20"`
	MonthlyMaintenance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_maintenance"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *Flat) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return err
	}
	if !f.MonthlyMaintenance.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// FlatWithOwner is a flat joined with its current occupant at read time.
type FlatWithOwner struct {
	Flat
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
	OwnerPhone string `json:"owner_phone,omitempty"`
	Occupant   *User  `json:"user,omitempty"`
}

// NewFlatWithOwner derives the owner fields from occupant, which may be nil.
func NewFlatWithOwner(flat Flat, occupant *User) FlatWithOwner {
	fo := FlatWithOwner{Flat: flat, Occupant: occupant}
	if occupant != nil {
		fo.OwnerName = occupant.Name
		fo.OwnerEmail = occupant.Email
		fo.OwnerPhone = occupant.Phone
	}
	return fo
}
