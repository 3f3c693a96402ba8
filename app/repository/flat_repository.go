package repository

import (
	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type flatRepository struct {
	db *gorm.DB
}

func NewFlatRepository(db *gorm.DB) FlatRepository {
	return &flatRepository{db: db}
}

func (r *flatRepository) Create(flat *models.Flat) error {
	return r.db.Create(flat).Error
}

func (r *flatRepository) GetByID(id uint) (*models.Flat, error) {
	var flat models.Flat
	if err := r.db.First(&flat, id).Error; err != nil {
		return nil, err
	}
	return &flat, nil
}

func (r *flatRepository) GetByNumber(number string) (*models.Flat, error) {
	var flat models.Flat
	if err := r.db.Where("flat_number = ?", number).First(&flat).Error; err != nil {
		return nil, err
	}
	return &flat, nil
}

// List returns all flats ordered by flat number
func (r *flatRepository) List() ([]models.Flat, error) {
	var flats []models.Flat
	err := r.db.Order("flat_number ASC").Find(&flats).Error
	return flats, err
}

func (r *flatRepository) UpdateMaintenance(id uint, amount decimal.Decimal) error {
	res := r.db.Model(&models.Flat{}).Where("id = ?", id).Update("monthly_maintenance", amount)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *flatRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Flat{}).Count(&count).Error
	return count, err
}
