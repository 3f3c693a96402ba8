package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceiptIssuer is the secondary step run after a confirmation
type ReceiptIssuer interface {
	IssueForPayment(ctx context.Context, paymentID uint) (*models.Receipt, error)
}

// Service owns the payment lifecycle: initiate, proof, confirm and the billing sweeps.
type Service struct {
	repos    *repository.Repositories
	upi      UPIConfig
	receipts ReceiptIssuer
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a payment service from injected repositories.
func NewService(repos *repository.Repositories, upi UPIConfig, opts ...Option) *Service {
	s := &Service{repos: repos, upi: upi, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReceiptIssuer wires the issuer after construction; the issuer itself depends on the ledger.
func (s *Service) SetReceiptIssuer(r ReceiptIssuer) {
	s.receipts = r
}

func (s *Service) UPIConfig() UPIConfig {
	return s.upi
}

// CurrentPeriod returns month and year of now in the billing zone.
func (s *Service) CurrentPeriod() (int, int) {
	return models.PeriodOf(s.now(), s.loc)
}

func normalizeMode(mode string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(mode))
	if m == "" {
		return models.DefaultPaymentMode, nil
	}
	if _, ok := paymentModes[m]; !ok {
		return "", apperr.InvalidInput("unsupported payment mode %q", mode)
	}
	return m, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// InitiateForUser resolves the caller's flat and initiates its payment.
func (s *Service) InitiateForUser(ctx context.Context, userID uint, in InitiateInput) (*InitiateResult, error) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	if !user.HasFlat() {
		return nil, apperr.InvalidInput("no flat assigned")
	}
	return s.Initiate(ctx, *user.FlatID, in)
}

// Initiate starts (or restarts) the payment of flatID for the given month.
// A PAID payment is final. A PENDING or FAILED one is reset in place with a
// fresh transaction id; otherwise a new PENDING payment is created with the
// flat's current monthly maintenance.
func (s *Service) Initiate(ctx context.Context, flatID uint, in InitiateInput) (*InitiateResult, error) {
	_ = ctx
	if !models.ValidPeriod(in.Month, in.Year) {
		return nil, apperr.InvalidInput("valid month and year are required")
	}
	mode, err := normalizeMode(in.PaymentMode)
	if err != nil {
		return nil, err
	}
	proof := trimmed(in.ProofURL)

	flat, err := s.repos.Flat.GetByID(flatID)
	if err != nil {
		return nil, apperr.FromStorage(err, "flat not found")
	}
	month, err := s.repos.MaintenanceMonth.Get(in.Month, in.Year)
	if err != nil {
		return nil, apperr.FromStorage(err, "maintenance month not initialized")
	}

	existing, err := s.repos.Payment.GetByFlatAndMonth(flat.ID, month.ID)
	switch {
	case err == nil:
		if existing.IsPaid() {
			return nil, apperr.Conflict("payment for %s is already paid", month.Label())
		}
		n, rerr := s.repos.Payment.ResetForRetry(existing.ID, repository.PaymentReset{
			TransactionID: uuid.New().String(),
			PaymentMode:   mode,
			ProofURL:      proof,
		})
		if rerr != nil {
			return nil, apperr.FromStorage(rerr, "reset payment")
		}
		if n == 0 {
			return nil, apperr.Conflict("payment for %s is already paid", month.Label())
		}
		log.Infof("[Payments] Re-initiated payment %d for flat %s (%s)", existing.ID, flat.FlatNumber, month.Label())
		return s.initiateResult(existing.ID)

	case errors.Is(err, gorm.ErrRecordNotFound):
		tx := uuid.New().String()
		p := &models.Payment{
			FlatID:             flat.ID,
			MaintenanceMonthID: month.ID,
			Amount:             flat.MonthlyMaintenance,
			Status:             models.PaymentStatusPending,
			PaymentMode:        mode,
			TransactionID:      &tx,
			ProofURL:           proof,
		}
		if cerr := s.repos.Payment.Create(p); cerr != nil {
			return nil, apperr.FromStorage(cerr, "payment for this month was initiated concurrently")
		}
		log.Infof("[Payments] Initiated payment %d for flat %s (%s)", p.ID, flat.FlatNumber, month.Label())
		return s.initiateResult(p.ID)

	default:
		return nil, apperr.FromStorage(err, "load payment")
	}
}

func (s *Service) initiateResult(paymentID uint) (*InitiateResult, error) {
	p, err := s.repos.Payment.GetByID(paymentID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	return &InitiateResult{Payment: p, UPI: s.upi}, nil
}

// SubmitProof attaches the payer's evidence. Only the flat's current occupant
// may submit, and the status is left for an administrator to decide.
func (s *Service) SubmitProof(ctx context.Context, userID, paymentID uint, in SubmitProofInput) (*models.Payment, error) {
	_ = ctx
	ref := trimmed(in.UPITransactionID)
	proof := trimmed(in.ProofURL)
	if ref == nil && proof == nil {
		return nil, apperr.InvalidInput("upiTransactionId or proofUrl is required")
	}

	p, err := s.repos.Payment.GetByID(paymentID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	if err := s.checkOccupant(userID, p.FlatID); err != nil {
		return nil, err
	}
	if p.IsPaid() {
		return nil, apperr.Conflict("payment is already paid")
	}

	n, err := s.repos.Payment.UpdateProof(p.ID, ref, proof)
	if err != nil {
		return nil, apperr.FromStorage(err, "update payment proof")
	}
	if n == 0 {
		return nil, apperr.Conflict("payment is already paid")
	}
	log.Infof("[Payments] Proof submitted for payment %d by user %d", p.ID, userID)

	p, err = s.repos.Payment.GetByID(p.ID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	return p, nil
}

func (s *Service) checkOccupant(userID, flatID uint) error {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Forbidden("payment does not belong to this user")
		}
		return apperr.FromStorage(err, "load user")
	}
	if !user.HasFlat() || *user.FlatID != flatID {
		return apperr.Forbidden("payment does not belong to this user")
	}
	return nil
}

// Confirm marks a payment PAID once and then issues its receipt. The receipt
// step is best-effort: its failure is logged and reported, never returned.
func (s *Service) Confirm(ctx context.Context, paymentID uint) (*ConfirmResult, error) {
	p, err := s.repos.Payment.GetByID(paymentID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	if p.IsPaid() {
		return nil, apperr.Conflict("payment is already paid")
	}

	n, err := s.repos.Payment.MarkPaid(p.ID, s.now())
	if err != nil {
		return nil, apperr.FromStorage(err, "confirm payment")
	}
	if n == 0 {
		return nil, apperr.Conflict("payment is already paid")
	}

	p, err = s.repos.Payment.GetByID(p.ID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	log.Infof("[Payments] Payment %d confirmed", p.ID)

	result := &ConfirmResult{Payment: p}
	if s.receipts == nil {
		return result, nil
	}
	receipt, rerr := s.receipts.IssueForPayment(ctx, p.ID)
	if rerr != nil {
		log.Errorf("[Payments] Receipt for payment %d failed: %v", p.ID, rerr)
		result.ReceiptErr = rerr
		result.ReceiptError = rerr.Error()
		return result, nil
	}
	result.Receipt = receipt
	return result, nil
}

// GetByTransactionID returns the payment behind a transaction id. Non-admins
// only see payments of the flat they occupy.
func (s *Service) GetByTransactionID(ctx context.Context, caller usercontext.Principal, transactionID string) (*models.Payment, error) {
	_ = ctx
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, apperr.InvalidInput("transaction id is required")
	}
	p, err := s.repos.Payment.GetByTransactionID(transactionID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	if !caller.IsAdmin() {
		if err := s.checkOccupant(caller.UserID, p.FlatID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ListForFlat returns a flat's payments, newest first
func (s *Service) ListForFlat(ctx context.Context, flatID uint) ([]models.Payment, error) {
	_ = ctx
	payments, err := s.repos.Payment.ListByFlat(flatID)
	if err != nil {
		return nil, apperr.FromStorage(err, "list payments")
	}
	return payments, nil
}

// ListForUser lists the payments of the caller's flat; no flat means no payments.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	if !user.HasFlat() {
		return []models.Payment{}, nil
	}
	return s.ListForFlat(ctx, *user.FlatID)
}

// ListAll returns the whole ledger, each row joined with the flat's current occupant.
func (s *Service) ListAll(ctx context.Context, filter repository.PaymentFilter) ([]models.PaymentWithOccupant, error) {
	_ = ctx
	payments, err := s.repos.Payment.ListAll(filter)
	if err != nil {
		return nil, apperr.FromStorage(err, "list payments")
	}

	flatIDs := make([]uint, 0, len(payments))
	seen := make(map[uint]struct{}, len(payments))
	for _, p := range payments {
		if _, ok := seen[p.FlatID]; !ok {
			seen[p.FlatID] = struct{}{}
			flatIDs = append(flatIDs, p.FlatID)
		}
	}
	occupants, err := s.repos.User.OccupantsByFlat(flatIDs)
	if err != nil {
		return nil, apperr.FromStorage(err, "load occupants")
	}

	out := make([]models.PaymentWithOccupant, 0, len(payments))
	for _, p := range payments {
		row := models.PaymentWithOccupant{Payment: p}
		if u, ok := occupants[p.FlatID]; ok {
			u := u
			row.Occupant = &u
		}
		out = append(out, row)
	}
	return out, nil
}
