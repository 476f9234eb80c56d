package repository

import (
	"context"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarrierConfigRepository defines data-access operations for carrier accounts.
type CarrierConfigRepository interface {
	Create(ctx context.Context, config *models.CarrierConfig) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CarrierConfig, error)
	FindByUser(ctx context.Context, userID string) ([]models.CarrierConfig, error)
	FindEnabledByUser(ctx context.Context, userID string) ([]models.CarrierConfig, error)
	Update(ctx context.Context, config *models.CarrierConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormCarrierConfigRepository implements CarrierConfigRepository using GORM.
type GormCarrierConfigRepository struct {
	db *gorm.DB
}

// NewGormCarrierConfigRepository creates a new GormCarrierConfigRepository.
func NewGormCarrierConfigRepository(db *gorm.DB) CarrierConfigRepository {
	return &GormCarrierConfigRepository{db: db}
}

func (r *GormCarrierConfigRepository) Create(ctx context.Context, config *models.CarrierConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

func (r *GormCarrierConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CarrierConfig, error) {
	var c models.CarrierConfig
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCarrierConfigRepository) FindByUser(ctx context.Context, userID string) ([]models.CarrierConfig, error) {
	var configs []models.CarrierConfig
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *GormCarrierConfigRepository) FindEnabledByUser(ctx context.Context, userID string) ([]models.CarrierConfig, error) {
	var configs []models.CarrierConfig
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("created_at ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *GormCarrierConfigRepository) Update(ctx context.Context, config *models.CarrierConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}

func (r *GormCarrierConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CarrierConfig{}, "id = ?", id).Error
}
