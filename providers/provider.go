// Package providers fetches carrier rate quotes for shipment requests.
package providers

import (
	"context"

	"rate-analysis-service/models"
)

// RateProvider fetches carrier quotes for one rate request against a set
// of carrier accounts.
type RateProvider interface {
	GetRates(ctx context.Context, req models.RateRequest, configs []models.CarrierConfig) ([]models.CarrierRate, error)
}
