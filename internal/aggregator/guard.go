package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

// guard validates a computed rollup before anything is written.
type guard struct {
	tenants tenantdomain.Repository
}

// checkTenant verifies the partition's tenant exists and is active.
func (g *guard) checkTenant(ctx context.Context, db *gorm.DB, p Partition) error {
	active, err := g.tenants.IsActive(ctx, db, p.TenantID)
	if errors.Is(err, tenantdomain.ErrTenantNotFound) {
		return fmt.Errorf("%w: %s", ErrTenantGone, p.TenantID)
	}
	if err != nil {
		return fmt.Errorf("tenant lookup: %w", err)
	}
	if !active {
		return fmt.Errorf("%w: %s", ErrTenantInactive, p.TenantID)
	}
	return nil
}

// checkRatios asserts every ratio is inside its documented range or carries
// the flag explaining why it was clamped. A violation here is a fold bug,
// surfaced as an error rather than silently persisted.
func (g *guard) checkRatios(row *metricsdomain.UnifiedMetricsDaily) error {
	if outOfUnitRange(row.FulfillmentRate) {
		return fmt.Errorf("fulfillment_rate %s outside [0,1]", row.FulfillmentRate)
	}
	if outOfUnitRange(row.RefundRate) {
		return fmt.Errorf("refund_rate %s outside [0,1]", row.RefundRate)
	}
	if row.TotalOrders == 0 && !row.AOV.IsZero() {
		return fmt.Errorf("aov %s with zero orders", row.AOV)
	}
	return nil
}

func outOfUnitRange(d decimal.Decimal) bool {
	return d.LessThan(zero) || d.GreaterThan(one)
}
