package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantNotFound is returned by lookups when the tenant row does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// Repository provides access to tenant rows. Implementations receive the
// *gorm.DB per call so callers control transaction scope.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Tenant, error)
	FindByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (*Tenant, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]Tenant, error)
	// IsActive reports whether the tenant exists and is active. A missing
	// tenant returns ErrTenantNotFound rather than (false, nil) so callers
	// can distinguish deletion from deactivation.
	IsActive(ctx context.Context, db *gorm.DB, id uuid.UUID) (bool, error)
	ListIntegrations(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) ([]PlatformIntegration, error)
}
