package repository

import (
	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Omit(clause.Associations).Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Flat").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Flat").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByFlatID returns the current occupant of a flat
func (r *userRepository) GetByFlatID(flatID uint) (*models.User, error) {
	var user models.User
	err := r.db.Where("flat_id = ?", flatID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update persists all user columns; associations are left alone
func (r *userRepository) Update(user *models.User) error {
	return r.db.Omit(clause.Associations).Save(user).Error
}

// AssignFlat points the user at a flat. A second occupant trips the unique index.
func (r *userRepository) AssignFlat(userID, flatID uint) error {
	res := r.db.Model(&models.User{}).Where("id = ?", userID).Update("flat_id", flatID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(id uint) error {
	res := r.db.Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns all users with their flat, newest first
func (r *userRepository) List() ([]models.User, error) {
	var users []models.User
	err := r.db.Preload("Flat").Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, err
}

// ListOccupants returns every user that currently has a flat
func (r *userRepository) ListOccupants() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("flat_id IS NOT NULL").Order("id ASC").Find(&users).Error
	return users, err
}

// OccupantsByFlat maps flat IDs to their current occupant
func (r *userRepository) OccupantsByFlat(flatIDs []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(flatIDs))
	if len(flatIDs) == 0 {
		return result, nil
	}
	var users []models.User
	if err := r.db.Where("flat_id IN ?", flatIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.FlatID != nil {
			result[*u.FlatID] = u
		}
	}
	return result, nil
}

// FirstAdmin returns the earliest admin account, used as the society contact
func (r *userRepository) FirstAdmin() (*models.User, error) {
	var user models.User
	err := r.db.Where("role = ?", models.ROLE_ADMIN).Order("id ASC").First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountOccupants counts users that currently occupy a flat
func (r *userRepository) CountOccupants() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("flat_id IS NOT NULL").Count(&count).Error
	return count, err
}
