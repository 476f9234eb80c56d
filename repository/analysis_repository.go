package repository

import (
	"context"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalysisRepository defines data-access operations for analyses.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Analysis, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Analysis, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormAnalysisRepository implements AnalysisRepository using GORM.
type GormAnalysisRepository struct {
	db *gorm.DB
}

// NewGormAnalysisRepository creates a new GormAnalysisRepository.
func NewGormAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &GormAnalysisRepository{db: db}
}

func (r *GormAnalysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *GormAnalysisRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	var a models.Analysis
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAnalysisRepository) FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Analysis, int64, error) {
	var analyses []models.Analysis
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Analysis{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&analyses).Error; err != nil {
		return nil, 0, err
	}

	return analyses, total, nil
}

// UpdateFields applies a partial update without touching the revision counter's
// gate semantics: the revision still advances so pollers observe the write.
func (r *GormAnalysisRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["revision"] = gorm.Expr("revision + 1")

	return r.db.WithContext(ctx).Model(&models.Analysis{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatus applies the given fields, bumps the revision in the same
// statement and reloads the row so callers see the revision they produced.
func (r *GormAnalysisRepository) UpdateStatus(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Analysis, error) {
	if err := r.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *GormAnalysisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Analysis{}, "id = ?", id).Error
}
