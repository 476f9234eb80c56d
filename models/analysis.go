package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Analysis lifecycle statuses.
const (
	AnalysisStatusPending    = "pending"
	AnalysisStatusInProgress = "in_progress"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

// Analysis is the persisted unit of work for one uploaded batch: its
// shipments, quotes and computed savings. Revision increases on every status
// write so observers can discard stale updates.
type Analysis struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             string         `gorm:"type:varchar(128);not null;index" json:"user_id"`
	ClientID           *uuid.UUID     `gorm:"type:uuid;index" json:"client_id,omitempty"`
	MarkupProfileID    *uuid.UUID     `gorm:"type:uuid" json:"markup_profile_id,omitempty"`
	Name               string         `gorm:"type:varchar(256);not null" json:"name"`
	Status             string         `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	TotalShipments     int            `gorm:"not null;default:0" json:"total_shipments"`
	ProcessedShipments int            `gorm:"not null;default:0" json:"processed_shipments"`
	TotalSavings       float64        `gorm:"not null;default:0" json:"total_savings"`
	ProcessingMetadata string         `gorm:"type:jsonb" json:"processing_metadata,omitempty"`
	Revision           int64          `gorm:"not null;default:0" json:"revision"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTerminalStatus reports whether a status ends the analysis lifecycle.
func IsTerminalStatus(status string) bool {
	return status == AnalysisStatusCompleted || status == AnalysisStatusFailed
}

// AnalysisRate is one persisted quote row written by the batcher.
type AnalysisRate struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AnalysisID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"analysis_id"`
	ShipmentIndex   int        `gorm:"not null" json:"shipment_index"`
	CarrierConfigID *uuid.UUID `gorm:"type:uuid" json:"carrier_config_id,omitempty"`
	AccountName     string     `gorm:"type:varchar(128)" json:"account_name"`
	CarrierType     string     `gorm:"type:varchar(32)" json:"carrier_type"`
	ServiceCode     string     `gorm:"type:varchar(64)" json:"service_code"`
	ServiceName     string     `gorm:"type:varchar(128)" json:"service_name"`
	RateAmount      float64    `gorm:"not null" json:"rate_amount"`
	Currency        string     `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	TransitDays     int        `json:"transit_days"`
	IsNegotiated    bool       `gorm:"not null;default:false" json:"is_negotiated"`
	PublishedRate   float64    `json:"published_rate"`
	ShipmentData    string     `gorm:"type:jsonb" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// AnalysisStatus is the read model the job tracker exposes: counts, lifecycle
// status and a monotonic revision used to drop out-of-order updates.
type AnalysisStatus struct {
	AnalysisID         uuid.UUID `json:"analysis_id"`
	Status             string    `json:"status"`
	TotalShipments     int       `json:"total_shipments"`
	ProcessedShipments int       `json:"processed_shipments"`
	Percent            float64   `json:"percent"`
	TotalSavings       float64   `json:"total_savings"`
	ProcessingMetadata string    `json:"processing_metadata,omitempty"`
	Revision           int64     `json:"revision"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProgressPercent derives a completion percentage from processed/total,
// clamped to [0,100]. A zero total reports 0.
func ProgressPercent(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(processed) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SavedReport records an exported analysis summary uploaded to S3.
type SavedReport struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AnalysisID uuid.UUID `gorm:"type:uuid;not null;index" json:"analysis_id"`
	UserID     string    `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Title      string    `gorm:"type:varchar(256);not null" json:"title"`
	Format     string    `gorm:"type:varchar(16);not null;default:'json'" json:"format"`
	S3Bucket   string    `gorm:"type:varchar(256)" json:"s3_bucket"`
	S3Key      string    `gorm:"type:varchar(512)" json:"s3_key"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateAnalysisRequest is the payload for creating an analysis shell.
type CreateAnalysisRequest struct {
	Name            string     `json:"name" binding:"required,min=1,max=256"`
	ClientID        *uuid.UUID `json:"client_id,omitempty"`
	MarkupProfileID *uuid.UUID `json:"markup_profile_id,omitempty"`
}

// ProcessAnalysisRequest carries the uploaded rows and column mapping that
// start a processing run.
type ProcessAnalysisRequest struct {
	Rows              []Row        `json:"rows" binding:"required"`
	Mappings          FieldMapping `json:"mappings" binding:"required"`
	OriginZipOverride string       `json:"origin_zip_override,omitempty"`
	ServiceTypes      []string     `json:"service_types,omitempty"`
}

// UpdateAnalysisRequest is the auto-save payload. Present fields replace the
// stored values; absent fields are left alone.
type UpdateAnalysisRequest struct {
	Name               *string  `json:"name,omitempty"`
	TotalSavings       *float64 `json:"total_savings,omitempty"`
	ProcessingMetadata *string  `json:"processing_metadata,omitempty"`
}

// ExportReportRequest is the payload for exporting an analysis report.
type ExportReportRequest struct {
	Title string `json:"title" binding:"required,min=1,max=256"`
}
