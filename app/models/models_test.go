package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("Jane Doe", "jane@example.com", "9999999999", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ROLE_USER, u.Role)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.False(t, u.HasFlat())

	_, err = CreateUser("J", "not-an-email", "", "secret123")
	assert.Error(t, err)
}

func TestFlatValidate(t *testing.T) {
	ok := Flat{FlatNumber: "A-101", MonthlyMaintenance: decimal.NewFromInt(5000)}
	assert.NoError(t, ok.Validate())

	zero := Flat{FlatNumber: "A-102", MonthlyMaintenance: decimal.Zero}
	assert.ErrorIs(t, zero.Validate(), ErrNonPositiveAmount)

	missing := Flat{MonthlyMaintenance: decimal.NewFromInt(10)}
	assert.Error(t, missing.Validate())
}

func TestNewFlatWithOwner(t *testing.T) {
	flat := Flat{ID: 1, FlatNumber: "B-12"}

	vacant := NewFlatWithOwner(flat, nil)
	assert.Empty(t, vacant.OwnerName)
	assert.Nil(t, vacant.Occupant)

	owned := NewFlatWithOwner(flat, &User{Name: "Jane Doe", Email: "jane@example.com", Phone: "123"})
	assert.Equal(t, "Jane Doe", owned.OwnerName)
	assert.Equal(t, "jane@example.com", owned.OwnerEmail)
	assert.Equal(t, "123", owned.OwnerPhone)
}

func TestMonthHelpers(t *testing.T) {
	m := MaintenanceMonth{Month: 3, Year: 2024}
	assert.Equal(t, "March 2024", m.Label())
	assert.Equal(t, "2024-03", m.Period())
	assert.True(t, Period(12, 2023) < Period(1, 2024))

	assert.True(t, ValidPeriod(1, 2024))
	assert.False(t, ValidPeriod(13, 2024))
	assert.False(t, ValidPeriod(0, 2024))
	assert.False(t, ValidPeriod(5, 1999))

	loc := time.FixedZone("IST", 5*3600+1800)
	// 31 Jan 20:00 UTC is already 1 Feb in IST.
	month, year := PeriodOf(time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, 2, month)
	assert.Equal(t, 2024, year)
}

func TestPaymentAwaitingReview(t *testing.T) {
	ref := "UPI-123"
	empty := ""

	p := Payment{Status: PaymentStatusPending}
	assert.False(t, p.AwaitingReview())

	p.UPITransactionID = &empty
	assert.False(t, p.AwaitingReview())

	p.UPITransactionID = &ref
	assert.True(t, p.AwaitingReview())

	p.Status = PaymentStatusPaid
	assert.False(t, p.AwaitingReview())
	assert.True(t, p.IsPaid())
}
