package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, t *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (id, name, api_key, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.APIKey,
		t.IsActive,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*tenantdomain.Tenant, error) {
	var t tenantdomain.Tenant
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tenantdomain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) FindByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (*tenantdomain.Tenant, error) {
	var t tenantdomain.Tenant
	err := db.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tenantdomain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]tenantdomain.Tenant, error) {
	var tenants []tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, api_key, is_active, created_at, updated_at
		 FROM tenants WHERE is_active ORDER BY created_at ASC`,
	).Scan(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repo) IsActive(ctx context.Context, db *gorm.DB, id uuid.UUID) (bool, error) {
	var row struct {
		IsActive bool
		Found    bool
	}
	err := db.WithContext(ctx).Raw(
		`SELECT is_active, TRUE AS found FROM tenants WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return false, err
	}
	if !row.Found {
		return false, tenantdomain.ErrTenantNotFound
	}
	return row.IsActive, nil
}

func (r *repo) ListIntegrations(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) ([]tenantdomain.PlatformIntegration, error) {
	var integrations []tenantdomain.PlatformIntegration
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&integrations).Error
	if err != nil {
		return nil, err
	}
	return integrations, nil
}
