package repository

import (
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByFlatID(flatID uint) (*models.User, error)
	Update(user *models.User) error
	AssignFlat(userID, flatID uint) error
	Delete(id uint) error
	List() ([]models.User, error)
	ListOccupants() ([]models.User, error)
	OccupantsByFlat(flatIDs []uint) (map[uint]models.User, error)
	FirstAdmin() (*models.User, error)
	Count() (int64, error)
	CountOccupants() (int64, error)
}

// FlatRepository defines the interface for flat-related database operations
type FlatRepository interface {
	Create(flat *models.Flat) error
	GetByID(id uint) (*models.Flat, error)
	GetByNumber(number string) (*models.Flat, error)
	List() ([]models.Flat, error)
	UpdateMaintenance(id uint, amount decimal.Decimal) error
	Count() (int64, error)
}

// MaintenanceMonthRepository defines the interface for billing month operations
type MaintenanceMonthRepository interface {
	Create(month *models.MaintenanceMonth) error
	GetByID(id uint) (*models.MaintenanceMonth, error)
	Get(month, year int) (*models.MaintenanceMonth, error)
	GetOrCreate(month, year int) (*models.MaintenanceMonth, error)
	ProvisionYear(year int) (int64, error)
	List() ([]models.MaintenanceMonth, error)
}

// PaymentFilter narrows ListAll. Zero values match everything.
type PaymentFilter struct {
	Month  int
	Year   int
	FlatID uint
	Status models.PaymentStatus
}

// PaymentReset carries the fields rewritten when a PENDING/FAILED payment is re-initiated.
type PaymentReset struct {
	TransactionID string
	PaymentMode   string
	ProofURL      *string
}

// PaymentRepository defines the interface for ledger operations on payments
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByTransactionID(transactionID string) (*models.Payment, error)
	GetByFlatAndMonth(flatID, monthID uint) (*models.Payment, error)
	ListByFlat(flatID uint) ([]models.Payment, error)
	ListAll(filter PaymentFilter) ([]models.Payment, error)
	ResetForRetry(id uint, reset PaymentReset) (int64, error)
	UpdateProof(id uint, upiTransactionID, proofURL *string) (int64, error)
	MarkPaid(id uint, paidAt time.Time) (int64, error)
	FailPendingForMonth(monthID uint) (int64, error)
	UpdateOpenAmounts(flatID uint, amount decimal.Decimal) (int64, error)
	ListPaidWithoutReceipt() ([]models.Payment, error)
	CountByStatusForMonth(monthID uint) (map[models.PaymentStatus]int64, error)
	SumPaidForMonth(monthID uint) (decimal.Decimal, error)
}

// ReceiptRepository defines the interface for receipt operations
type ReceiptRepository interface {
	Create(receipt *models.Receipt) error
	GetByID(id uint) (*models.Receipt, error)
	GetByPaymentID(paymentID uint) (*models.Receipt, error)
	ListByFlat(flatID uint) ([]models.Receipt, error)
	ListUndelivered(createdAfter, createdBefore time.Time, limit int) ([]models.Receipt, error)
	MarkEmailSent(id uint) error
	SetDocumentURL(id uint, url string) error
}

// SettingRepository defines the interface for key/value settings
type SettingRepository interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Repositories holds all repository instances
type Repositories struct {
	User             UserRepository
	Flat             FlatRepository
	MaintenanceMonth MaintenanceMonthRepository
	Payment          PaymentRepository
	Receipt          ReceiptRepository
	Setting          SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:             NewUserRepository(db),
		Flat:             NewFlatRepository(db),
		MaintenanceMonth: NewMaintenanceMonthRepository(db),
		Payment:          NewPaymentRepository(db),
		Receipt:          NewReceiptRepository(db),
		Setting:          NewSettingRepository(db),
	}
}
