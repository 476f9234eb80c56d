package repository

import (
	"context"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedReportRepository defines data-access operations for exported reports.
type SavedReportRepository interface {
	Create(ctx context.Context, report *models.SavedReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SavedReport, error)
	FindByUser(ctx context.Context, userID string) ([]models.SavedReport, error)
	FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.SavedReport, error)
}

// GormSavedReportRepository implements SavedReportRepository using GORM.
type GormSavedReportRepository struct {
	db *gorm.DB
}

// NewGormSavedReportRepository creates a new GormSavedReportRepository.
func NewGormSavedReportRepository(db *gorm.DB) SavedReportRepository {
	return &GormSavedReportRepository{db: db}
}

func (r *GormSavedReportRepository) Create(ctx context.Context, report *models.SavedReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *GormSavedReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.SavedReport, error) {
	var report models.SavedReport
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *GormSavedReportRepository) FindByUser(ctx context.Context, userID string) ([]models.SavedReport, error) {
	var reports []models.SavedReport
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *GormSavedReportRepository) FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.SavedReport, error) {
	var reports []models.SavedReport
	if err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
