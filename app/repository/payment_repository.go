package repository

import (
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create inserts a payment. A second row for the same (flat, month) fails
// with gorm.ErrDuplicatedKey.
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Omit(clause.Associations).Create(payment).Error
}

func (r *paymentRepository) withRelations() *gorm.DB {
	return r.db.Preload("Flat").Preload("MaintenanceMonth")
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.withRelations().First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetByTransactionID(transactionID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.withRelations().Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetByFlatAndMonth(flatID, monthID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("flat_id = ? AND maintenance_month_id = ?", flatID, monthID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByFlat returns a flat's payments, newest first
func (r *paymentRepository) ListByFlat(flatID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.withRelations().
		Where("flat_id = ?", flatID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&payments).Error
	return payments, err
}

// ListAll returns payments ordered year desc, month desc, flat number asc
func (r *paymentRepository) ListAll(filter PaymentFilter) ([]models.Payment, error) {
	q := r.withRelations().
		Model(&models.Payment{}).
		Joins("JOIN maintenance_months ON maintenance_months.id = payments.maintenance_month_id").
		Joins("JOIN flats ON flats.id = payments.flat_id")
	if filter.Month > 0 {
		q = q.Where("maintenance_months.month = ?", filter.Month)
	}
	if filter.Year > 0 {
		q = q.Where("maintenance_months.year = ?", filter.Year)
	}
	if filter.FlatID > 0 {
		q = q.Where("payments.flat_id = ?", filter.FlatID)
	}
	if filter.Status != "" {
		q = q.Where("payments.status = ?", filter.Status)
	}

	var payments []models.Payment
	err := q.Order("maintenance_months.year DESC").
		Order("maintenance_months.month DESC").
		Order("flats.flat_number ASC").
		Find(&payments).Error
	return payments, err
}

// ResetForRetry turns a non-PAID payment back into a fresh PENDING attempt.
// Zero rows affected means the payment is gone or was paid in the meantime.
func (r *paymentRepository) ResetForRetry(id uint, reset PaymentReset) (int64, error) {
	updates := map[string]interface{}{
		"status":         models.PaymentStatusPending,
		"transaction_id": reset.TransactionID,
		"payment_mode":   reset.PaymentMode,
		"paid_at":        nil,
	}
	if reset.ProofURL != nil {
		updates["proof_url"] = *reset.ProofURL
	}
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusPaid).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpdateProof records the payer's evidence without touching the status
func (r *paymentRepository) UpdateProof(id uint, upiTransactionID, proofURL *string) (int64, error) {
	updates := map[string]interface{}{}
	if upiTransactionID != nil {
		updates["upi_transaction_id"] = *upiTransactionID
	}
	if proofURL != nil {
		updates["proof_url"] = *proofURL
	}
	if len(updates) == 0 {
		return 0, nil
	}
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusPaid).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MarkPaid moves a payment to PAID once. A payment that is already PAID is
// left untouched and zero rows are reported.
func (r *paymentRepository) MarkPaid(id uint, paidAt time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"status":  models.PaymentStatusPaid,
			"paid_at": paidAt,
		})
	return res.RowsAffected, res.Error
}

// FailPendingForMonth is a single update-by-filter: PENDING -> FAILED.
func (r *paymentRepository) FailPendingForMonth(monthID uint) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("maintenance_month_id = ? AND status = ?", monthID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}

// UpdateOpenAmounts reprices a flat's unpaid (PENDING or FAILED) payments
func (r *paymentRepository) UpdateOpenAmounts(flatID uint, amount decimal.Decimal) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("flat_id = ? AND status IN ?", flatID, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Update("amount", amount)
	return res.RowsAffected, res.Error
}

// ListPaidWithoutReceipt returns PAID payments that have no receipt row
func (r *paymentRepository) ListPaidWithoutReceipt() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Model(&models.Payment{}).
		Joins("LEFT JOIN receipts ON receipts.payment_id = payments.id").
		Where("payments.status = ? AND receipts.id IS NULL", models.PaymentStatusPaid).
		Order("payments.id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) CountByStatusForMonth(monthID uint) (map[models.PaymentStatus]int64, error) {
	var rows []struct {
		Status models.PaymentStatus
		Total  int64
	}
	err := r.db.Model(&models.Payment{}).
		Select("status, COUNT(*) AS total").
		Where("maintenance_month_id = ?", monthID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[models.PaymentStatus]int64{
		models.PaymentStatusPending: 0,
		models.PaymentStatusPaid:    0,
		models.PaymentStatusFailed:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *paymentRepository) SumPaidForMonth(monthID uint) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.Model(&models.Payment{}).
		Select("SUM(amount)").
		Where("maintenance_month_id = ? AND status = ?", monthID, models.PaymentStatusPaid).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
