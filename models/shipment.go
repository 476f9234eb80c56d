package models

import "github.com/google/uuid"

// Row is one raw spreadsheet row keyed by column header. CSV parsing happens
// upstream; by the time a row reaches this service it is already a string map.
type Row map[string]string

// FieldMapping maps a shipment field name (e.g. "originZip") to the source
// column header it should be read from.
type FieldMapping map[string]string

// NoMapping is the sentinel a client sends for a field it chose not to map.
const NoMapping = "__NONE__"

// ShipmentRecord is one uploaded row mapped into the analysis schema. Values
// stay as the trimmed strings from the upload; numeric parsing happens during
// validation and rate-request building. Records are immutable once validated.
type ShipmentRecord struct {
	ID          int               `json:"id"`
	OriginZip   string            `json:"originZip,omitempty"`
	DestZip     string            `json:"destZip,omitempty"`
	Weight      string            `json:"weight,omitempty"`
	Length      string            `json:"length,omitempty"`
	Width       string            `json:"width,omitempty"`
	Height      string            `json:"height,omitempty"`
	Service     string            `json:"service,omitempty"`
	Residential string            `json:"residential,omitempty"`
	CurrentRate string            `json:"currentRate,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// ValidationResult holds the per-record outcome of shipment validation.
// Errors and warnings are keyed by field name; a record is valid iff it
// produced no errors. Results are never merged or mutated after creation.
type ValidationResult struct {
	IsValid  bool                `json:"isValid"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Warnings map[string][]string `json:"warnings,omitempty"`
}

// Dimensions are parcel dimensions in inches.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RateRequest describes one rate-quote lookup sent to the rate provider.
// It is also the input for cache fingerprinting.
type RateRequest struct {
	OriginZip    string     `json:"origin_zip"`
	DestZip      string     `json:"dest_zip"`
	Weight       float64    `json:"weight"`
	Dimensions   Dimensions `json:"dimensions"`
	ServiceTypes []string   `json:"service_types,omitempty"`
	AccountIDs   []string   `json:"account_ids,omitempty"`
	Residential  bool       `json:"residential"`
}

// RatePreviewRequest quotes a single hypothetical shipment outside any
// analysis run.
type RatePreviewRequest struct {
	OriginZip       string     `json:"origin_zip" binding:"required,min=5"`
	DestZip         string     `json:"dest_zip" binding:"required,min=5"`
	Weight          float64    `json:"weight" binding:"required,gt=0"`
	Length          float64    `json:"length"`
	Width           float64    `json:"width"`
	Height          float64    `json:"height"`
	ServiceTypes    []string   `json:"service_types,omitempty"`
	Residential     bool       `json:"residential"`
	MarkupProfileID *uuid.UUID `json:"markup_profile_id,omitempty"`
}

// CarrierRate is a single quote returned by a carrier account.
type CarrierRate struct {
	CarrierConfigID uuid.UUID `json:"carrier_config_id"`
	AccountName     string    `json:"account_name"`
	CarrierType     string    `json:"carrier_type"`
	ServiceCode     string    `json:"service_code"`
	ServiceName     string    `json:"service_name"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	TransitDays     int       `json:"transit_days"`
	IsNegotiated    bool      `json:"is_negotiated"`
	PublishedRate   float64   `json:"published_rate"`
}

// CompletedShipment aggregates one shipment with its quotes and computed
// savings. It is handed to the batcher exactly once and dropped from pending
// state after the flush that persisted it.
type CompletedShipment struct {
	Record         ShipmentRecord `json:"record"`
	CurrentCost    float64        `json:"current_cost"`
	Rates          []CarrierRate  `json:"rates"`
	BestRate       *CarrierRate   `json:"best_rate,omitempty"`
	Savings        float64        `json:"savings"`
	SavingsPercent float64        `json:"savings_percent"`
}
