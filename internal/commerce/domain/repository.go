package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlatformAll selects rows from every platform. Stored as the platform value
// on combined rollup rows so the unique index stays NOT NULL.
const PlatformAll = ""

// Repository reads the unified tables for one (tenant, date, platform)
// partition at a time. Passing PlatformAll widens the platform filter to the
// whole tenant.
type Repository interface {
	OrdersForPartition(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) ([]UnifiedOrder, error)
	ItemsForOrders(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, orderIDs []uuid.UUID) ([]UnifiedOrderItem, error)
	// UnitCosts returns catalog cost keyed by external product id. Products
	// without a recorded cost are absent from the map.
	UnitCosts(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) (map[string]decimal.Decimal, error)
	// InventoryValue sums on-hand units times catalog cost over the latest
	// inventory snapshots.
	InventoryValue(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, platform string) (decimal.Decimal, error)
	AdSpend(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) (decimal.Decimal, error)
	ProductsByExternalID(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) (map[string]UnifiedProduct, error)
	// DistinctPlatforms lists platforms with at least one order on the date.
	DistinctPlatforms(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time) ([]string, error)
	CreateOrder(ctx context.Context, db *gorm.DB, order *UnifiedOrder, items []UnifiedOrderItem) error
}
