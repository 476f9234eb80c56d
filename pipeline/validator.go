package pipeline

import (
	"context"
	"math"
	"runtime"
	"strconv"

	"rate-analysis-service/models"
)

// validatorYieldInterval is how many records are validated between
// cooperative yield points.
const validatorYieldInterval = 50

const (
	msgInvalidOriginZip = "Invalid origin ZIP code"
	msgInvalidDestZip   = "Invalid destination ZIP code"
	msgInvalidWeight    = "Invalid weight"
)

// ValidateRecords produces one ValidationResult per record, keyed by
// startIndex + offset.
func ValidateRecords(ctx context.Context, records []models.ShipmentRecord, startIndex int) (map[int]models.ValidationResult, error) {
	results := make(map[int]models.ValidationResult, len(records))

	for offset, rec := range records {
		if offset > 0 && offset%validatorYieldInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}

		results[startIndex+offset] = validateRecord(rec)
	}

	return results, nil
}

// validateRecord applies the minimum field rules a shipment needs before
// it can be rated.
func validateRecord(rec models.ShipmentRecord) models.ValidationResult {
	result := models.ValidationResult{
		IsValid:  true,
		Errors:   make(map[string][]string),
		Warnings: make(map[string][]string),
	}

	if len(rec.OriginZip) < 5 {
		result.Errors["originZip"] = append(result.Errors["originZip"], msgInvalidOriginZip)
	}
	if len(rec.DestZip) < 5 {
		result.Errors["destZip"] = append(result.Errors["destZip"], msgInvalidDestZip)
	}
	if !isFiniteNumber(rec.Weight) {
		result.Errors["weight"] = append(result.Errors["weight"], msgInvalidWeight)
	}

	if len(result.Errors) > 0 {
		result.IsValid = false
	}

	return result
}

func isFiniteNumber(s string) bool {
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
