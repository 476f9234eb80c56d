package models

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types published to Kafka.
const (
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// AnalysisLifecycleEvent is published when an analysis starts or reaches a
// terminal state.
type AnalysisLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	AnalysisID     string    `json:"analysis_id"`
	UserID         string    `json:"user_id"`
	TotalShipments int       `json:"total_shipments"`
	TotalSavings   float64   `json:"total_savings"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AnalysisStatusEvent is the push notification sent over SNS on every status
// change. Consumers feed it to the job tracker, which discards events whose
// revision is not newer than what it already holds.
type AnalysisStatusEvent struct {
	EventType          string    `json:"event_type"`
	AnalysisID         uuid.UUID `json:"analysis_id"`
	Status             string    `json:"status"`
	TotalShipments     int       `json:"total_shipments"`
	ProcessedShipments int       `json:"processed_shipments"`
	TotalSavings       float64   `json:"total_savings"`
	Revision           int64     `json:"revision"`
	Timestamp          time.Time `json:"timestamp"`
}

// EventTypeAnalysisStatus is the EventType for AnalysisStatusEvent payloads.
const EventTypeAnalysisStatus = "analysis_status"

// ToStatus converts a push event into the tracker's read model.
func (e *AnalysisStatusEvent) ToStatus() AnalysisStatus {
	return AnalysisStatus{
		AnalysisID:         e.AnalysisID,
		Status:             e.Status,
		TotalShipments:     e.TotalShipments,
		ProcessedShipments: e.ProcessedShipments,
		Percent:            ProgressPercent(e.ProcessedShipments, e.TotalShipments),
		TotalSavings:       e.TotalSavings,
		Revision:           e.Revision,
		UpdatedAt:          e.Timestamp,
	}
}
