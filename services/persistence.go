package services

import (
	"context"
	"encoding/json"
	"fmt"

	"rate-analysis-service/models"
	awspkg "rate-analysis-service/pkg/aws"
	"rate-analysis-service/repository"

	"github.com/google/uuid"
)

// shipmentSnapshot is the per-shipment context stored alongside each quote
// row, minus the quote list itself.
type shipmentSnapshot struct {
	Record         models.ShipmentRecord `json:"record"`
	CurrentCost    float64               `json:"current_cost"`
	Savings        float64               `json:"savings"`
	SavingsPercent float64               `json:"savings_percent"`
}

// rateWriter persists flushed batches as analysis_rates rows, one row per
// quote.
type rateWriter struct {
	rates repository.AnalysisRateRepository
}

func (w *rateWriter) WriteBatch(ctx context.Context, analysisID uuid.UUID, items []models.CompletedShipment) error {
	rows := make([]models.AnalysisRate, 0, len(items))
	for _, item := range items {
		blob, err := json.Marshal(shipmentSnapshot{
			Record:         item.Record,
			CurrentCost:    item.CurrentCost,
			Savings:        item.Savings,
			SavingsPercent: item.SavingsPercent,
		})
		if err != nil {
			return fmt.Errorf("marshal shipment %d: %w", item.Record.ID, err)
		}

		for _, rate := range item.Rates {
			row := models.AnalysisRate{
				AnalysisID:    analysisID,
				ShipmentIndex: item.Record.ID,
				AccountName:   rate.AccountName,
				CarrierType:   rate.CarrierType,
				ServiceCode:   rate.ServiceCode,
				ServiceName:   rate.ServiceName,
				RateAmount:    rate.Amount,
				Currency:      rate.Currency,
				TransitDays:   rate.TransitDays,
				IsNegotiated:  rate.IsNegotiated,
				PublishedRate: rate.PublishedRate,
				ShipmentData:  string(blob),
			}
			if rate.CarrierConfigID != uuid.Nil {
				id := rate.CarrierConfigID
				row.CarrierConfigID = &id
			}
			rows = append(rows, row)
		}
	}
	return w.rates.InsertBatch(ctx, rows)
}

// analysisSaver implements the auto-save write path against the analyses
// table.
type analysisSaver struct {
	repo    repository.AnalysisRepository
	metrics *awspkg.MetricsClient
}

func (s *analysisSaver) SaveAnalysisFields(ctx context.Context, analysisID uuid.UUID, fields map[string]interface{}) error {
	if err := s.repo.UpdateFields(ctx, analysisID, fields); err != nil {
		return err
	}
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricAutoSaves, nil)
	}
	return nil
}

// statusFromAnalysis projects a stored row into the tracker's read model.
func statusFromAnalysis(a *models.Analysis) models.AnalysisStatus {
	return models.AnalysisStatus{
		AnalysisID:         a.ID,
		Status:             a.Status,
		TotalShipments:     a.TotalShipments,
		ProcessedShipments: a.ProcessedShipments,
		Percent:            models.ProgressPercent(a.ProcessedShipments, a.TotalShipments),
		TotalSavings:       a.TotalSavings,
		ProcessingMetadata: a.ProcessingMetadata,
		Revision:           a.Revision,
		UpdatedAt:          a.UpdatedAt,
	}
}
