package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// SettingBillingWatermark holds the last period ("YYYY-MM") whose
	// pending payments were generated without failures.
	SettingBillingWatermark = "billing.last_generated_period"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null;default:'string'" json:"type" validate:"oneof=string boolean integer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Setting) Validate() error {
	return validator.New().Struct(s)
}
