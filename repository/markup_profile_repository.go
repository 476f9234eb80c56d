package repository

import (
	"context"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarkupProfileRepository defines data-access operations for markup profiles.
type MarkupProfileRepository interface {
	Create(ctx context.Context, profile *models.MarkupProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MarkupProfile, error)
	FindByUser(ctx context.Context, userID string) ([]models.MarkupProfile, error)
	Update(ctx context.Context, profile *models.MarkupProfile) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormMarkupProfileRepository implements MarkupProfileRepository using GORM.
type GormMarkupProfileRepository struct {
	db *gorm.DB
}

// NewGormMarkupProfileRepository creates a new GormMarkupProfileRepository.
func NewGormMarkupProfileRepository(db *gorm.DB) MarkupProfileRepository {
	return &GormMarkupProfileRepository{db: db}
}

func (r *GormMarkupProfileRepository) Create(ctx context.Context, profile *models.MarkupProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *GormMarkupProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MarkupProfile, error) {
	var p models.MarkupProfile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormMarkupProfileRepository) FindByUser(ctx context.Context, userID string) ([]models.MarkupProfile, error) {
	var profiles []models.MarkupProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *GormMarkupProfileRepository) Update(ctx context.Context, profile *models.MarkupProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *GormMarkupProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MarkupProfile{}, "id = ?", id).Error
}
