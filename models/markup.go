package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarkupType selects how a profile adjusts base rates.
type MarkupType string

const (
	MarkupTypeGlobal     MarkupType = "global"
	MarkupTypePerService MarkupType = "per_service"
	MarkupTypeTiered     MarkupType = "tiered"
)

// MarkupTier is one band of a tiered profile. MaxAmount -1 means unbounded.
type MarkupTier struct {
	MinAmount  float64 `json:"min_amount"`
	MaxAmount  float64 `json:"max_amount"`
	Percentage float64 `json:"percentage"`
}

// MarkupConfig is the parsed form of a profile's config column. Only the
// fields matching the profile type are meaningful.
type MarkupConfig struct {
	GlobalPercentage float64            `json:"global_percentage,omitempty"`
	ServiceMarkups   map[string]float64 `json:"service_markups,omitempty"`
	Tiers            []MarkupTier       `json:"tiers,omitempty"`
}

// MarkupProfile is a stored markup configuration applied to carrier rates
// before they are shown to a client.
type MarkupProfile struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     string         `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Name       string         `gorm:"type:varchar(128);not null" json:"name"`
	Type       MarkupType     `gorm:"type:varchar(20);not null" json:"type"`
	ConfigJSON string         `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	Active     bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateMarkupProfileRequest is the payload for creating a markup profile.
type CreateMarkupProfileRequest struct {
	Name   string       `json:"name" binding:"required,min=1,max=128"`
	Type   MarkupType   `json:"type" binding:"required,oneof=global per_service tiered"`
	Config MarkupConfig `json:"config"`
}

// UpdateMarkupProfileRequest is the payload for updating a markup profile.
// Pointer fields distinguish "absent" from zero values.
type UpdateMarkupProfileRequest struct {
	Name   *string       `json:"name,omitempty"`
	Type   *MarkupType   `json:"type,omitempty"`
	Config *MarkupConfig `json:"config,omitempty"`
	Active *bool         `json:"active,omitempty"`
}
