package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/testdb"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   *Service
	now   time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := testdb.Open(t)
	f := &fixture{db: db, repos: repository.NewRepositories(db), now: now}
	f.svc = NewService(f.repos, UPIConfig{UPIID: "society@paytm", ReceiverName: "ABC Housing Society"},
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)
	return f
}

func (f *fixture) flat(t *testing.T, number string, amount int64) *models.Flat {
	t.Helper()
	flat := &models.Flat{FlatNumber: number, MonthlyMaintenance: decimal.NewFromInt(amount)}
	require.NoError(t, f.repos.Flat.Create(flat))
	return flat
}

func (f *fixture) user(t *testing.T, name, email string, flat *models.Flat) *models.User {
	t.Helper()
	u, err := models.CreateUser(name, email, "", "secret123")
	require.NoError(t, err)
	if flat != nil {
		u.FlatID = &flat.ID
	}
	require.NoError(t, f.repos.User.Create(u))
	return u
}

func (f *fixture) month(t *testing.T, month, year int) *models.MaintenanceMonth {
	t.Helper()
	m, err := f.repos.MaintenanceMonth.GetOrCreate(month, year)
	require.NoError(t, err)
	return m
}

func (f *fixture) setStatus(t *testing.T, paymentID uint, status models.PaymentStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Payment{}).Where("id = ?", paymentID).Update("status", status).Error)
}

// hidingPaymentRepo never sees an existing payment, as a concurrent initiator would.
type hidingPaymentRepo struct {
	repository.PaymentRepository
}

func (hidingPaymentRepo) GetByFlatAndMonth(uint, uint) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubIssuer struct {
	err   error
	calls int
}

func (s *stubIssuer) IssueForPayment(_ context.Context, paymentID uint) (*models.Receipt, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Receipt{PaymentID: paymentID, ReceiptNumber: "RCT-test"}, nil
}

var march2024 = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

func TestInitiateCreatesPendingPayment(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.True(t, decimal.NewFromInt(5000).Equal(p.Amount))
	assert.Equal(t, "UPI", p.PaymentMode)
	require.NotNil(t, p.TransactionID)
	assert.Len(t, *p.TransactionID, 36)
	assert.Nil(t, p.PaidAt)
	assert.Equal(t, "society@paytm", res.UPI.UPIID)
	assert.Equal(t, "ABC Housing Society", res.UPI.ReceiverName)
}

func TestInitiateValidation(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)

	_, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 13, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "month not initialized: %v", err)

	f.month(t, 3, 2024)
	_, err = f.svc.Initiate(context.Background(), 999, InitiateInput{Month: 3, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024, PaymentMode: "bitcoin"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestInitiateForUserWithoutFlat(t *testing.T) {
	f := newFixture(t, march2024)
	u := f.user(t, "Jane Doe", "jane@example.com", nil)

	_, err := f.svc.InitiateForUser(context.Background(), u.ID, InitiateInput{Month: 3, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, "no flat assigned", apperr.Message(err))
}

func TestReinitiateReusesPayment(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, march2024)
			flat := f.flat(t, "A-101", 5000)
			f.month(t, 3, 2024)

			first, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
			require.NoError(t, err)
			f.setStatus(t, first.Payment.ID, status)

			proof := "https://cdn.example.com/p.jpg"
			second, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024, PaymentMode: "cash", ProofURL: &proof})
			require.NoError(t, err)

			assert.Equal(t, first.Payment.ID, second.Payment.ID)
			assert.Equal(t, models.PaymentStatusPending, second.Payment.Status)
			assert.NotEqual(t, *first.Payment.TransactionID, *second.Payment.TransactionID)
			assert.Equal(t, "CASH", second.Payment.PaymentMode)
			require.NotNil(t, second.Payment.ProofURL)
			assert.Equal(t, proof, *second.Payment.ProofURL)

			all, err := f.repos.Payment.ListByFlat(flat.ID)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestInitiatePaidIsConflict(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), res.Payment.ID)
	require.NoError(t, err)

	_, err = f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestConcurrentInitiateLosesWithConflict(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)

	_, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)

	// The second initiator read before the first committed.
	f.repos.Payment = hidingPaymentRepo{PaymentRepository: f.repos.Payment}
	_, err = f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)

	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitProof(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	other := f.flat(t, "A-102", 5000)
	f.month(t, 3, 2024)
	owner := f.user(t, "Jane Doe", "jane@example.com", flat)
	stranger := f.user(t, "John Roe", "john@example.com", other)

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)
	ref := " UPI-42 "

	_, err = f.svc.SubmitProof(context.Background(), owner.ID, res.Payment.ID, SubmitProofInput{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.SubmitProof(context.Background(), stranger.ID, res.Payment.ID, SubmitProofInput{UPITransactionID: &ref})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.svc.SubmitProof(context.Background(), owner.ID, 999, SubmitProofInput{UPITransactionID: &ref})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	p, err := f.svc.SubmitProof(context.Background(), owner.ID, res.Payment.ID, SubmitProofInput{UPITransactionID: &ref})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	require.NotNil(t, p.UPITransactionID)
	assert.Equal(t, "UPI-42", *p.UPITransactionID)
	assert.True(t, p.AwaitingReview())

	_, err = f.svc.Confirm(context.Background(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitProof(context.Background(), owner.ID, p.ID, SubmitProofInput{UPITransactionID: &ref})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestConfirmIsOnce(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)
	issuer := &stubIssuer{}
	f.svc.SetReceiptIssuer(issuer)

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)

	first, err := f.svc.Confirm(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, first.Payment.Status)
	require.NotNil(t, first.Payment.PaidAt)
	assert.True(t, march2024.Equal(*first.Payment.PaidAt))
	require.NotNil(t, first.Receipt)
	assert.Equal(t, 1, issuer.calls)

	f.now = march2024.Add(48 * time.Hour)
	_, err = f.svc.Confirm(context.Background(), res.Payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 1, issuer.calls)

	stored, err := f.repos.Payment.GetByID(res.Payment.ID)
	require.NoError(t, err)
	assert.True(t, march2024.Equal(*stored.PaidAt), "paidAt must not be re-stamped")

	_, err = f.svc.Confirm(context.Background(), 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestConfirmSurvivesReceiptFailure(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)
	f.svc.SetReceiptIssuer(&stubIssuer{err: errors.New("renderer down")})

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)

	out, err := f.svc.Confirm(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, out.Payment.Status)
	assert.Nil(t, out.Receipt)
	assert.EqualError(t, out.ReceiptErr, "renderer down")
	assert.Equal(t, "renderer down", out.ReceiptError)
}

func TestGetByTransactionIDOwnership(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 3, 2024)
	owner := f.user(t, "Jane Doe", "jane@example.com", flat)
	stranger := f.user(t, "John Roe", "john@example.com", nil)

	res, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)
	tx := *res.Payment.TransactionID

	got, err := f.svc.GetByTransactionID(context.Background(), usercontext.Principal{UserID: owner.ID, Role: usercontext.RoleUser}, tx)
	require.NoError(t, err)
	assert.Equal(t, res.Payment.ID, got.ID)

	_, err = f.svc.GetByTransactionID(context.Background(), usercontext.Principal{UserID: stranger.ID, Role: usercontext.RoleUser}, tx)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.svc.GetByTransactionID(context.Background(), usercontext.Principal{UserID: stranger.ID, Role: usercontext.RoleAdmin}, tx)
	assert.NoError(t, err)

	_, err = f.svc.GetByTransactionID(context.Background(), usercontext.Principal{UserID: owner.ID}, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestListAllJoinsCurrentOccupant(t *testing.T) {
	f := newFixture(t, march2024)
	occupied := f.flat(t, "A-101", 5000)
	vacant := f.flat(t, "B-12", 1200)
	f.month(t, 3, 2024)
	f.user(t, "Jane Doe", "jane@example.com", occupied)

	for _, flat := range []*models.Flat{occupied, vacant} {
		_, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
		require.NoError(t, err)
	}

	rows, err := f.svc.ListAll(context.Background(), repository.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-101", rows[0].Flat.FlatNumber)
	require.NotNil(t, rows[0].Occupant)
	assert.Equal(t, "Jane Doe", rows[0].Occupant.Name)
	assert.Nil(t, rows[1].Occupant)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t, march2024)
	flat := f.flat(t, "A-101", 5000)
	f.month(t, 2, 2024)
	f.month(t, 3, 2024)
	owner := f.user(t, "Jane Doe", "jane@example.com", flat)
	homeless := f.user(t, "John Roe", "john@example.com", nil)

	_, err := f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 2, Year: 2024})
	require.NoError(t, err)
	f.now = march2024.Add(time.Hour)
	_, err = f.svc.Initiate(context.Background(), flat.ID, InitiateInput{Month: 3, Year: 2024})
	require.NoError(t, err)

	mine, err := f.svc.ListForUser(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 3, mine[0].MaintenanceMonth.Month)

	none, err := f.svc.ListForUser(context.Background(), homeless.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
