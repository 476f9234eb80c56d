package repository

import (
	"context"
	"rate-analysis-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalysisRateRepository defines data-access operations for persisted quotes.
type AnalysisRateRepository interface {
	InsertBatch(ctx context.Context, rates []models.AnalysisRate) error
	FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.AnalysisRate, error)
	DeleteByAnalysis(ctx context.Context, analysisID uuid.UUID) error
}

// GormAnalysisRateRepository implements AnalysisRateRepository using GORM.
type GormAnalysisRateRepository struct {
	db *gorm.DB
}

// NewGormAnalysisRateRepository creates a new GormAnalysisRateRepository.
func NewGormAnalysisRateRepository(db *gorm.DB) AnalysisRateRepository {
	return &GormAnalysisRateRepository{db: db}
}

// InsertBatch writes one flushed batch as a single multi-row insert.
func (r *GormAnalysisRateRepository) InsertBatch(ctx context.Context, rates []models.AnalysisRate) error {
	if len(rates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rates).Error
}

func (r *GormAnalysisRateRepository) FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.AnalysisRate, error) {
	var rates []models.AnalysisRate
	if err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("shipment_index ASC").
		Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *GormAnalysisRateRepository) DeleteByAnalysis(ctx context.Context, analysisID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Delete(&models.AnalysisRate{}).Error
}
