// Package seed bootstraps the minimum rows a fresh install needs.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

const defaultTenantName = "Default"

// EnsureDefaultTenant creates the bootstrap tenant on first startup so local
// and self-hosted installs are usable without an onboarding flow.
func EnsureDefaultTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tenantdomain.Tenant{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		now := time.Now().UTC()
		tenant := tenantdomain.Tenant{
			ID:        uuid.New(),
			Name:      defaultTenantName,
			APIKey:    uuid.NewString(),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&tenant).Error
	})
}
