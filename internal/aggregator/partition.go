// Package aggregator recomputes daily rollups for dirty
// (tenant, date, platform) partitions.
package aggregator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
)

// Partition identifies one unit of aggregation work. Platform
// commercedomain.PlatformAll is the tenant-wide combined partition.
type Partition struct {
	TenantID uuid.UUID
	Date     time.Time
	Platform string
}

// NewPartition normalizes the date to midnight UTC so equal partitions
// compare equal regardless of the caller's clock precision.
func NewPartition(tenantID uuid.UUID, date time.Time, platform string) Partition {
	return Partition{
		TenantID: tenantID,
		Date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Platform: platform,
	}
}

// Key is the stable identity used by the dirty set and the lease.
func (p Partition) Key() string {
	return fmt.Sprintf("%s|%s|%s", p.TenantID, p.Date.Format(time.DateOnly), p.Platform)
}

// Combined returns the all-platform partition for the same tenant and day.
func (p Partition) Combined() Partition {
	p.Platform = commercedomain.PlatformAll
	return p
}

// IsCombined reports whether the partition spans every platform.
func (p Partition) IsCombined() bool {
	return p.Platform == commercedomain.PlatformAll
}
