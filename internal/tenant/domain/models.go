// Package domain contains persistence models for tenants and their
// platform integrations.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Tenant is the isolation boundary. Every downstream row carries its id
// and is removed with it on cascade delete.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	APIKey    string    `gorm:"column:api_key;type:varchar(255);not null;uniqueIndex"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// User is an operator account scoped to a tenant. Not consulted by the
// aggregation engine; kept for schema completeness.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Email         string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash  string         `gorm:"type:varchar(255);not null"`
	FirstName     string         `gorm:"type:varchar(100);not null"`
	LastName      string         `gorm:"type:varchar(100);not null"`
	Role          string         `gorm:"type:varchar(50);not null;default:'user'"`
	TenantID      *uuid.UUID     `gorm:"type:uuid"`
	Tenant        *Tenant        `gorm:"foreignKey:TenantID"`
	Scopes        datatypes.JSON `gorm:"type:jsonb"`
	IsActive      bool           `gorm:"not null;default:true"`
	LastLogin     *time.Time
	EmailVerified bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// PlatformIntegration is a tenant's credentialed connection to one external
// platform. Read-only context for the aggregation core.
type PlatformIntegration struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	Tenant            *Tenant           `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Platform          string            `gorm:"type:varchar(50);not null"`
	ConnectionName    string            `gorm:"type:varchar(255)"`
	ExternalAccountID string            `gorm:"type:varchar(255)"`
	AccessToken       string            `gorm:"type:text"`
	RefreshToken      string            `gorm:"type:text"`
	IsActive          bool              `gorm:"not null;default:true"`
	LastSyncAt        *time.Time
	Settings          datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlatformIntegration) TableName() string { return "platform_integrations" }

// Supported source platforms.
const (
	PlatformShopify    = "shopify"
	PlatformAmazon     = "amazon"
	PlatformWalmart    = "walmart"
	PlatformQuickBooks = "quickbooks"
	PlatformNetSuite   = "netsuite"
)
