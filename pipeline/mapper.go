// Package pipeline maps raw spreadsheet rows into shipment records and
// validates them off the request path.
package pipeline

import (
	"context"
	"runtime"
	"strings"

	"rate-analysis-service/models"
)

// mapperYieldInterval is how many records are mapped between cooperative
// yield points so large batches do not starve other goroutines.
const mapperYieldInterval = 100

// MapRows produces one ShipmentRecord per row using the field-to-column
// mapping. Record IDs are startIndex + offset + 1 and stay stable for the
// batch. A target field is filled only when its mapped column exists in
// the row and is not the no-mapping sentinel; values are copied trimmed.
// A non-blank originZipOverride replaces the mapped origin ZIP on every
// record.
func MapRows(ctx context.Context, rows []models.Row, mappings models.FieldMapping, startIndex int, originZipOverride string) ([]models.ShipmentRecord, error) {
	override := strings.TrimSpace(originZipOverride)
	records := make([]models.ShipmentRecord, 0, len(rows))

	for offset, row := range rows {
		if offset > 0 && offset%mapperYieldInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}

		rec := models.ShipmentRecord{
			ID:    startIndex + offset + 1,
			Extra: make(map[string]string),
		}
		for field, column := range mappings {
			if column == "" || column == models.NoMapping {
				continue
			}
			value, ok := row[column]
			if !ok {
				continue
			}
			assignField(&rec, field, strings.TrimSpace(value))
		}
		if override != "" {
			rec.OriginZip = override
		}

		records = append(records, rec)
	}

	return records, nil
}

func assignField(rec *models.ShipmentRecord, field, value string) {
	switch field {
	case "originZip":
		rec.OriginZip = value
	case "destZip":
		rec.DestZip = value
	case "weight":
		rec.Weight = value
	case "length":
		rec.Length = value
	case "width":
		rec.Width = value
	case "height":
		rec.Height = value
	case "service":
		rec.Service = value
	case "residential":
		rec.Residential = value
	case "currentRate":
		rec.CurrentRate = value
	default:
		rec.Extra[field] = value
	}
}
