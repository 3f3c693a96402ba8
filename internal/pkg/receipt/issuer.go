package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier requests delivery of a freshly issued receipt
type Notifier interface {
	Notify(ctx context.Context, receipt *models.Receipt) error
}

// Delivery reports the outcome of the delivery request, never the delivery itself
type Delivery struct {
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}

type IssueResult struct {
	Receipt  *models.Receipt `json:"receipt"`
	Delivery Delivery        `json:"delivery"`
}

type BackfillItem struct {
	PaymentID     uint            `json:"paymentId"`
	ReceiptNumber string          `json:"receiptNumber"`
	FlatNumber    string          `json:"flatNumber"`
	Amount        decimal.Decimal `json:"amount"`
}

type BackfillError struct {
	PaymentID uint   `json:"paymentId"`
	Error     string `json:"error"`
}

type BackfillResult struct {
	Total    int             `json:"total"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Receipts []BackfillItem  `json:"receipts"`
	Errors   []BackfillError `json:"errors,omitempty"`
}

// Document is a rendered receipt ready for download
type Document struct {
	Filename string
	Data     []byte
}

type Issuer struct {
	repos       *repository.Repositories
	notifier    Notifier
	societyName string
	now         func() time.Time
	loc         *time.Location
}

type Option func(*Issuer)

func WithNotifier(n Notifier) Option {
	return func(i *Issuer) { i.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(i *Issuer) {
		if loc != nil {
			i.loc = loc
		}
	}
}

func WithSocietyName(name string) Option {
	return func(i *Issuer) {
		if name != "" {
			i.societyName = name
		}
	}
}

func NewIssuer(repos *repository.Repositories, opts ...Option) *Issuer {
	i := &Issuer{
		repos:       repos,
		societyName: "Apartment Maintenance System",
		now:         time.Now,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetNotifier wires delivery after construction; the queue handler needs the issuer first.
func (i *Issuer) SetNotifier(n Notifier) {
	i.notifier = n
}

// Number formats RCT-<unix millis>-<8-digit payment id>
func Number(now time.Time, paymentID uint) string {
	return fmt.Sprintf("RCT-%d-%08d", now.UnixMilli(), paymentID)
}

// Issue creates the single receipt of a PAID payment and requests its delivery.
func (i *Issuer) Issue(ctx context.Context, paymentID uint) (*IssueResult, error) {
	p, err := i.repos.Payment.GetByID(paymentID)
	if err != nil {
		return nil, apperr.FromStorage(err, "payment not found")
	}
	if !p.IsPaid() {
		return nil, apperr.InvalidState("payment is not PAID yet")
	}

	_, err = i.repos.Receipt.GetByPaymentID(p.ID)
	switch {
	case err == nil:
		return nil, apperr.Conflict("receipt already exists for this payment")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.FromStorage(err, "load receipt")
	}

	r := &models.Receipt{
		PaymentID:     p.ID,
		ReceiptNumber: Number(i.now(), p.ID),
	}
	if err := i.repos.Receipt.Create(r); err != nil {
		return nil, apperr.FromStorage(err, "receipt already exists for this payment")
	}
	r.Payment = p
	log.Infof("[Receipts] Issued %s for payment %d", r.ReceiptNumber, p.ID)

	return &IssueResult{Receipt: r, Delivery: i.requestDelivery(ctx, r)}, nil
}

func (i *Issuer) requestDelivery(ctx context.Context, r *models.Receipt) Delivery {
	if i.notifier == nil {
		return Delivery{}
	}
	if err := i.notifier.Notify(ctx, r); err != nil {
		log.Warnf("[Receipts] Delivery of %s not queued: %v", r.ReceiptNumber, err)
		return Delivery{Error: err.Error()}
	}
	return Delivery{Queued: true}
}

// IssueForPayment is the confirmation hook of the payment service.
func (i *Issuer) IssueForPayment(ctx context.Context, paymentID uint) (*models.Receipt, error) {
	res, err := i.Issue(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

// BackfillMissing issues receipts for every PAID payment that lacks one.
// Each payment is attempted on its own; failures are collected.
func (i *Issuer) BackfillMissing(ctx context.Context) (*BackfillResult, error) {
	payments, err := i.repos.Payment.ListPaidWithoutReceipt()
	if err != nil {
		return nil, apperr.FromStorage(err, "list payments without receipts")
	}

	result := &BackfillResult{Total: len(payments), Receipts: []BackfillItem{}}
	for _, p := range payments {
		res, ierr := i.Issue(ctx, p.ID)
		if ierr != nil {
			log.Errorf("[Receipts] Backfill for payment %d failed: %v", p.ID, ierr)
			result.Failed++
			result.Errors = append(result.Errors, BackfillError{PaymentID: p.ID, Error: apperr.Message(ierr)})
			continue
		}
		item := BackfillItem{PaymentID: p.ID, ReceiptNumber: res.Receipt.ReceiptNumber, Amount: p.Amount}
		if p.Flat != nil {
			item.FlatNumber = p.Flat.FlatNumber
		}
		result.Success++
		result.Receipts = append(result.Receipts, item)
	}
	log.Infof("[Receipts] Backfill done: %d total, %d issued, %d failed", result.Total, result.Success, result.Failed)
	return result, nil
}

func (i *Issuer) ListForFlat(ctx context.Context, flatID uint) ([]models.Receipt, error) {
	_ = ctx
	receipts, err := i.repos.Receipt.ListByFlat(flatID)
	if err != nil {
		return nil, apperr.FromStorage(err, "list receipts")
	}
	return receipts, nil
}

// ListForUser lists the receipts of the caller's flat
func (i *Issuer) ListForUser(ctx context.Context, userID uint) ([]models.Receipt, error) {
	user, err := i.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	if !user.HasFlat() {
		return nil, apperr.InvalidInput("no flat assigned")
	}
	return i.ListForFlat(ctx, *user.FlatID)
}

// GetForUser returns a receipt to an admin or to the current occupant of its flat.
func (i *Issuer) GetForUser(ctx context.Context, caller usercontext.Principal, receiptID uint) (*models.Receipt, error) {
	_ = ctx
	r, err := i.repos.Receipt.GetByID(receiptID)
	if err != nil {
		return nil, apperr.FromStorage(err, "receipt not found")
	}
	if caller.IsAdmin() {
		return r, nil
	}
	user, err := i.repos.User.GetByID(caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("receipt does not belong to this user")
		}
		return nil, apperr.FromStorage(err, "load user")
	}
	if r.Payment == nil || !user.HasFlat() || *user.FlatID != r.Payment.FlatID {
		return nil, apperr.Forbidden("receipt does not belong to this user")
	}
	return r, nil
}

// Document renders the PDF of a receipt the caller may see.
func (i *Issuer) Document(ctx context.Context, caller usercontext.Principal, receiptID uint) (*Document, error) {
	r, err := i.GetForUser(ctx, caller, receiptID)
	if err != nil {
		return nil, err
	}
	data, err := i.DataFor(r)
	if err != nil {
		return nil, err
	}
	pdf, err := Render(*data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "render receipt")
	}
	return &Document{Filename: Filename(*data), Data: pdf}, nil
}

// DataFor assembles the printable data of a receipt loaded with its payment.
func (i *Issuer) DataFor(r *models.Receipt) (*Data, error) {
	p := r.Payment
	if p == nil || p.Flat == nil || p.MaintenanceMonth == nil {
		loaded, err := i.repos.Receipt.GetByID(r.ID)
		if err != nil {
			return nil, apperr.FromStorage(err, "receipt not found")
		}
		p = loaded.Payment
	}
	if p == nil {
		return nil, apperr.NotFound("payment of receipt %s not found", r.ReceiptNumber)
	}

	d := &Data{
		SocietyName:   i.societyName,
		ReceiptNumber: r.ReceiptNumber,
		FlatNumber:    "N/A",
		OwnerName:     "N/A",
		Amount:        p.Amount,
		Mode:          p.PaymentMode,
		TransactionID: "N/A",
		PaidAt:        i.now().In(i.loc),
	}
	if p.Flat != nil {
		d.FlatNumber = p.Flat.FlatNumber
	}
	if p.MaintenanceMonth != nil {
		d.Month, d.Year = p.MaintenanceMonth.Month, p.MaintenanceMonth.Year
	}
	if d.Mode == "" {
		d.Mode = models.DefaultPaymentMode
	}
	if p.TransactionID != nil && *p.TransactionID != "" {
		d.TransactionID = *p.TransactionID
	}
	if p.PaidAt != nil {
		d.PaidAt = p.PaidAt.In(i.loc)
	}
	if occupant, err := i.repos.User.GetByFlatID(p.FlatID); err == nil {
		d.OwnerName = occupant.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromStorage(err, "load occupant")
	}
	return d, nil
}
