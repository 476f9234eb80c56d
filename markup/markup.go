// Package markup computes marked-up carrier rates from a markup profile.
package markup

import (
	"encoding/json"
	"fmt"

	"rate-analysis-service/models"
)

// Profile is a decoded markup profile ready to apply to base rates.
type Profile struct {
	Type   models.MarkupType
	Config models.MarkupConfig
}

// Savings describes the outcome of comparing a marked-up rate with the
// rate the shipper currently pays.
type Savings struct {
	FinalRate         float64 `json:"finalRate"`
	Savings           float64 `json:"savings"`
	SavingsPercentage float64 `json:"savingsPercentage"`
}

// FromModel decodes a stored markup profile into an applicable Profile.
func FromModel(m *models.MarkupProfile) (Profile, error) {
	p := Profile{Type: m.Type}
	raw := m.ConfigJSON
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &p.Config); err != nil {
		return Profile{}, fmt.Errorf("invalid markup config for profile %s: %w", m.ID, err)
	}
	return p, nil
}

// Apply computes the marked-up rate for a base carrier rate. Unknown
// profile types leave the rate unchanged.
func (p Profile) Apply(baseRate float64, serviceCode string) float64 {
	switch p.Type {
	case models.MarkupTypeGlobal:
		return baseRate * (1 + p.Config.GlobalPercentage/100)
	case models.MarkupTypePerService:
		// Missing service codes mark up 0%
		pct := p.Config.ServiceMarkups[serviceCode]
		return baseRate * (1 + pct/100)
	case models.MarkupTypeTiered:
		return applyTiered(baseRate, p.Config.Tiers)
	default:
		return baseRate
	}
}

// CalculateSavings applies the profile to baseRate and compares the result
// with the currently paid rate. SavingsPercentage is 0 when currentRate is 0.
func (p Profile) CalculateSavings(currentRate, baseRate float64, serviceCode string) Savings {
	final := p.Apply(baseRate, serviceCode)
	savings := currentRate - final

	var pct float64
	if currentRate != 0 {
		pct = savings / currentRate * 100
	}

	return Savings{
		FinalRate:         final,
		Savings:           savings,
		SavingsPercentage: pct,
	}
}

// applyTiered picks the tier covering baseRate. A tier matches when the
// rate is at or above its minimum and at or below its maximum (-1 means
// unbounded). When adjacent tiers share a boundary amount, the tier that
// starts at that amount wins. No match leaves the rate unmarked.
func applyTiered(baseRate float64, tiers []models.MarkupTier) float64 {
	var match *models.MarkupTier
	for i := range tiers {
		t := &tiers[i]
		if baseRate < t.MinAmount {
			continue
		}
		if t.MaxAmount == -1 || baseRate <= t.MaxAmount {
			match = t
		}
	}
	if match == nil {
		return baseRate
	}
	return baseRate * (1 + match.Percentage/100)
}
