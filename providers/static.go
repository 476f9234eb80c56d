package providers

import (
	"context"
	"math"

	"rate-analysis-service/models"
)

// staticService is one entry of the built-in service catalog.
type staticService struct {
	code    string
	name    string
	factor  float64
	transit int
}

var staticCatalog = []staticService{
	{"GROUND", "Ground", 1.0, 5},
	{"EXPRESS_SAVER", "Express Saver", 1.45, 3},
	{"2_DAY", "2 Day", 1.8, 2},
	{"OVERNIGHT", "Overnight", 2.6, 1},
}

const (
	residentialSurcharge = 4.10
	negotiatedDiscount   = 0.85
)

// StaticProvider produces deterministic quotes without calling a carrier
// gateway. Identical requests always price identically, which is what the
// cache and dedup layers assume. Used for local development and tests.
type StaticProvider struct{}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// GetRates prices the request against the built-in catalog for every
// enabled account.
func (s *StaticProvider) GetRates(_ context.Context, req models.RateRequest, configs []models.CarrierConfig) ([]models.CarrierRate, error) {
	wanted := make(map[string]bool, len(req.ServiceTypes))
	for _, st := range req.ServiceTypes {
		wanted[st] = true
	}

	base := 8.40 + req.Weight*0.92 + zoneSpread(req.OriginZip, req.DestZip)

	var rates []models.CarrierRate
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		for _, svc := range staticCatalog {
			if len(wanted) > 0 && !wanted[svc.code] {
				continue
			}

			published := base * svc.factor
			if req.Residential {
				published += residentialSurcharge
			}
			amount := published
			if cfg.IsNegotiated {
				amount = published * negotiatedDiscount
			}

			rates = append(rates, models.CarrierRate{
				CarrierConfigID: cfg.ID,
				AccountName:     cfg.AccountName,
				CarrierType:     cfg.CarrierType,
				ServiceCode:     svc.code,
				ServiceName:     svc.name,
				Amount:          round2(amount),
				Currency:        "USD",
				TransitDays:     svc.transit,
				IsNegotiated:    cfg.IsNegotiated,
				PublishedRate:   round2(published),
			})
		}
	}

	return rates, nil
}

// zoneSpread derives a distance-shaped surcharge from the leading ZIP
// digits so cross-country lanes price above local ones.
func zoneSpread(originZip, destZip string) float64 {
	if originZip == "" || destZip == "" {
		return 0
	}
	diff := float64(originZip[0]) - float64(destZip[0])
	return math.Abs(diff) * 0.65
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
