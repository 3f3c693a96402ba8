package repository

import (
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

// Create inserts a receipt; a second receipt for a payment fails with gorm.ErrDuplicatedKey
func (r *receiptRepository) Create(receipt *models.Receipt) error {
	return r.db.Omit(clause.Associations).Create(receipt).Error
}

func (r *receiptRepository) withPayment() *gorm.DB {
	return r.db.Preload("Payment").Preload("Payment.Flat").Preload("Payment.MaintenanceMonth")
}

func (r *receiptRepository) GetByID(id uint) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.withPayment().First(&receipt, id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) GetByPaymentID(paymentID uint) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.withPayment().Where("payment_id = ?", paymentID).First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListByFlat returns the receipts of a flat's payments, newest first
func (r *receiptRepository) ListByFlat(flatID uint) ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := r.withPayment().
		Joins("JOIN payments ON payments.id = receipts.payment_id").
		Where("payments.flat_id = ?", flatID).
		Order("receipts.created_at DESC").
		Order("receipts.id DESC").
		Find(&receipts).Error
	return receipts, err
}

// ListUndelivered returns receipts created inside the window whose email has not gone out, oldest first
func (r *receiptRepository) ListUndelivered(createdAfter, createdBefore time.Time, limit int) ([]models.Receipt, error) {
	var receipts []models.Receipt
	q := r.db.Where("email_sent = ? AND created_at > ? AND created_at < ?", false, createdAfter, createdBefore).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&receipts).Error
	return receipts, err
}

func (r *receiptRepository) MarkEmailSent(id uint) error {
	return r.db.Model(&models.Receipt{}).Where("id = ?", id).Update("email_sent", true).Error
}

func (r *receiptRepository) SetDocumentURL(id uint, url string) error {
	return r.db.Model(&models.Receipt{}).Where("id = ?", id).Update("document_url", url).Error
}
