package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists rollup rows. Upserts key on the natural partition
// columns, never on the surrogate id, so re-aggregation converges to the
// same row.
type Repository interface {
	// UpsertDaily writes one daily rollup. On conflict every metric column
	// and updated_at are replaced; id and created_at keep their first
	// values.
	UpsertDaily(ctx context.Context, db *gorm.DB, row *UnifiedMetricsDaily) error
	// UpsertProducts writes the per-product rollups for one (tenant, date)
	// inside a single transaction.
	UpsertProducts(ctx context.Context, db *gorm.DB, rows []ProductMetrics) error
	FindDaily(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) (*UnifiedMetricsDaily, error)
	ListDaily(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, from, to time.Time, platform string) ([]UnifiedMetricsDaily, error)
	ListProducts(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]ProductMetrics, error)
}
