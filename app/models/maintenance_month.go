package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrNonPositiveAmount = errors.New("amount must be greater than zero")

type MaintenanceMonth struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Month     int       `gorm:"not null;uniqueIndex:idx_maintenance_month_year,priority:2" json:"month" validate:"min=1,max=12"`
	Year      int       `gorm:"not null;uniqueIndex:idx_maintenance_month_year,priority:1" json:"year" validate:"min=2000,max=2100"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Label renders the month as "March 2024".
func (m MaintenanceMonth) Label() string {
	return MonthLabel(m.Month, m.Year)
}

func (m MaintenanceMonth) Period() string {
	return Period(m.Month, m.Year)
}

func MonthLabel(month, year int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// Period is the sortable "YYYY-MM" key of a billing month.
func Period(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// PeriodOf returns month and year of t in loc.
func PeriodOf(t time.Time, loc *time.Location) (int, int) {
	if loc != nil {
		t = t.In(loc)
	}
	return int(t.Month()), t.Year()
}

func ValidPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 2100
}
