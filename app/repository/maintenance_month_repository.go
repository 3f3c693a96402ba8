package repository

import (
	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type maintenanceMonthRepository struct {
	db *gorm.DB
}

func NewMaintenanceMonthRepository(db *gorm.DB) MaintenanceMonthRepository {
	return &maintenanceMonthRepository{db: db}
}

func (r *maintenanceMonthRepository) Create(month *models.MaintenanceMonth) error {
	return r.db.Create(month).Error
}

func (r *maintenanceMonthRepository) GetByID(id uint) (*models.MaintenanceMonth, error) {
	var m models.MaintenanceMonth
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *maintenanceMonthRepository) Get(month, year int) (*models.MaintenanceMonth, error) {
	var m models.MaintenanceMonth
	if err := r.db.Where("month = ? AND year = ?", month, year).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate inserts the month if it is missing. Concurrent callers both
// end up reading the single row kept by the unique index.
func (r *maintenanceMonthRepository) GetOrCreate(month, year int) (*models.MaintenanceMonth, error) {
	m := models.MaintenanceMonth{Month: month, Year: year}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, err
	}
	return r.Get(month, year)
}

// ProvisionYear creates all twelve months of year, skipping existing ones.
// It returns how many were inserted.
func (r *maintenanceMonthRepository) ProvisionYear(year int) (int64, error) {
	months := make([]models.MaintenanceMonth, 0, 12)
	for m := 1; m <= 12; m++ {
		months = append(months, models.MaintenanceMonth{Month: m, Year: year})
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&months)
	return res.RowsAffected, res.Error
}

// List returns months newest first
func (r *maintenanceMonthRepository) List() ([]models.MaintenanceMonth, error) {
	var months []models.MaintenanceMonth
	err := r.db.Order("year DESC").Order("month DESC").Find(&months).Error
	return months, err
}
