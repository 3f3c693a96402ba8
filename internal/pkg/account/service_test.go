package account

import (
	"context"
	"testing"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/auth"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos  *repository.Repositories
	tokens *auth.Issuer
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(testdb.Open(t))
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	payments := payment.NewService(repos, payment.UPIConfig{}, payment.WithClock(func() time.Time { return now }), payment.WithLocation(time.UTC))
	tokens := auth.NewIssuer("test-secret", time.Hour)
	return &fixture{repos: repos, tokens: tokens, svc: NewService(repos, tokens, payments)}
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestRegisterCreatesFlatAndPendingPayment(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Jane Doe", Email: "Jane@Example.com", Password: "secret123",
		FlatNumber: "A-101", MonthlyMaintenance: amount(2500),
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, models.ROLE_USER, user.Role)
	require.NotNil(t, user.Flat)
	assert.Equal(t, "A-101", user.Flat.FlatNumber)

	month, err := f.repos.MaintenanceMonth.Get(3, 2024)
	require.NoError(t, err)
	p, err := f.repos.Payment.GetByFlatAndMonth(*user.FlatID, month.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.True(t, decimal.NewFromInt(2500).Equal(p.Amount))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "a@example.com", Password: "secret123", FlatNumber: "A-1"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "new flat needs a maintenance amount")

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "a@example.com", Password: "secret123", FlatNumber: "A-1", MonthlyMaintenance: amount(100)})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "a@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "John", Email: "b@example.com", Password: "secret123", FlatNumber: "A-1"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "flat already occupied")
}

func TestRegisterOnlyFirstAdminIsBootstrapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "secret123", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_ADMIN, first.Role)

	second, err := f.svc.Register(ctx, RegisterInput{Name: "Mallory", Email: "m@example.com", Password: "secret123", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_USER, second.Role)

	contact, err := f.svc.AdminContact(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, contact.ID)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "jane@example.com", "secret123")
	require.NoError(t, err)
	principal, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, principal.UserID)
	assert.Equal(t, models.ROLE_USER, principal.Role)

	_, err = f.svc.Login(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, 401, apperr.Status(err))

	_, err = f.svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAssignFlat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flat, err := f.svc.CreateFlat(ctx, CreateFlatInput{FlatNumber: "B-12", MonthlyMaintenance: decimal.NewFromInt(1200)})
	require.NoError(t, err)
	jane, err := f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)
	john, err := f.svc.Register(ctx, RegisterInput{Name: "John", Email: "john@example.com", Password: "secret123"})
	require.NoError(t, err)

	res, err := f.svc.AssignFlat(ctx, jane.ID, flat.ID)
	require.NoError(t, err)
	assert.True(t, res.PaymentCreated)
	assert.Equal(t, "Jane", res.Flat.OwnerName)

	_, err = f.svc.AssignFlat(ctx, john.ID, flat.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.AssignFlat(ctx, 999, flat.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.AssignFlat(ctx, john.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	flats, err := f.svc.ListFlats(ctx)
	require.NoError(t, err)
	require.Len(t, flats, 1)
	assert.Equal(t, "jane@example.com", flats[0].OwnerEmail)

	mine, err := f.svc.MyFlat(ctx, jane.ID)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, "B-12", mine.FlatNumber)

	none, err := f.svc.MyFlat(ctx, john.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateUserRepricesOpenPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane, err := f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123", FlatNumber: "A-1", MonthlyMaintenance: amount(1000)})
	require.NoError(t, err)

	feb, err := f.repos.MaintenanceMonth.GetOrCreate(2, 2024)
	require.NoError(t, err)
	paid := &models.Payment{FlatID: *jane.FlatID, MaintenanceMonthID: feb.ID, Amount: decimal.NewFromInt(1000), Status: models.PaymentStatusPaid, PaymentMode: "UPI"}
	require.NoError(t, f.repos.Payment.Create(paid))

	name := "Jane Doe"
	updated, err := f.svc.UpdateUser(ctx, jane.ID, UpdateUserInput{Name: &name, MonthlyMaintenance: amount(1500)})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.Name)
	assert.True(t, decimal.NewFromInt(1500).Equal(updated.Flat.MonthlyMaintenance))

	payments, err := f.repos.Payment.ListByFlat(*jane.FlatID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, p := range payments {
		if p.ID == paid.ID {
			assert.True(t, decimal.NewFromInt(1000).Equal(p.Amount), "paid payments keep their amount")
		} else {
			assert.True(t, decimal.NewFromInt(1500).Equal(p.Amount))
		}
	}

	bad := "OWNER"
	_, err = f.svc.UpdateUser(ctx, jane.ID, UpdateUserInput{Role: &bad})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpdateUserResetsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane, err := f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	short := "abc"
	_, err = f.svc.UpdateUser(ctx, jane.ID, UpdateUserInput{Password: &short})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	fresh := "new-secret"
	_, err = f.svc.UpdateUser(ctx, jane.ID, UpdateUserInput{Password: &fresh})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "jane@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.Login(ctx, "jane@example.com", "new-secret")
	assert.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane, err := f.svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, jane.ID))
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, jane.ID), apperr.ErrNotFound)
}

func TestCreateFlatValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFlat(ctx, CreateFlatInput{FlatNumber: "A-1", MonthlyMaintenance: decimal.Zero})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.CreateFlat(ctx, CreateFlatInput{FlatNumber: "A-1", MonthlyMaintenance: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = f.svc.CreateFlat(ctx, CreateFlatInput{FlatNumber: "A-1", MonthlyMaintenance: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
