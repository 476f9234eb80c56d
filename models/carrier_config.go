package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supported carrier types.
const (
	CarrierTypeUPS   = "ups"
	CarrierTypeFedEx = "fedex"
	CarrierTypeDHL   = "dhl"
	CarrierTypeUSPS  = "usps"
)

// CarrierConfig is a stored carrier account used for rate lookups. The
// credentials blob is opaque to this service; it is forwarded to the rate
// gateway as-is.
type CarrierConfig struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          string         `gorm:"type:varchar(128);not null;index" json:"user_id"`
	CarrierType     string         `gorm:"type:varchar(32);not null" json:"carrier_type"`
	AccountName     string         `gorm:"type:varchar(128);not null" json:"account_name"`
	AccountNumber   string         `gorm:"type:varchar(64)" json:"account_number,omitempty"`
	IsNegotiated    bool           `gorm:"not null;default:false" json:"is_negotiated"`
	Enabled         bool           `gorm:"not null;default:true" json:"enabled"`
	CredentialsJSON string         `gorm:"type:jsonb" json:"-"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateCarrierConfigRequest is the payload for registering a carrier account.
type CreateCarrierConfigRequest struct {
	CarrierType   string            `json:"carrier_type" binding:"required,oneof=ups fedex dhl usps"`
	AccountName   string            `json:"account_name" binding:"required,min=1,max=128"`
	AccountNumber string            `json:"account_number"`
	IsNegotiated  bool              `json:"is_negotiated"`
	Credentials   map[string]string `json:"credentials"`
}

// UpdateCarrierConfigRequest is the payload for updating a carrier account.
type UpdateCarrierConfigRequest struct {
	AccountName   *string            `json:"account_name,omitempty"`
	AccountNumber *string            `json:"account_number,omitempty"`
	IsNegotiated  *bool              `json:"is_negotiated,omitempty"`
	Enabled       *bool              `json:"enabled,omitempty"`
	Credentials   *map[string]string `json:"credentials,omitempty"`
}
