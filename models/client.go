package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is an end customer analyses are saved for.
type Client struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      string         `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Name        string         `gorm:"type:varchar(128);not null" json:"name"`
	CompanyName string         `gorm:"type:varchar(256)" json:"company_name,omitempty"`
	Email       string         `gorm:"type:varchar(256)" json:"email,omitempty"`
	Phone       string         `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateClientRequest is the payload for creating a client.
type CreateClientRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=128"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
}

// UpdateClientRequest is the payload for updating a client.
type UpdateClientRequest struct {
	Name        *string `json:"name,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone       *string `json:"phone,omitempty"`
}
