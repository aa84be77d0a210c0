package aggregator

import (
	"context"
	"errors"

	"github.com/commercepulse/commercepulse/pkg/db"
)

var (
	// ErrTenantGone marks a partition whose tenant no longer exists. The
	// partition is dropped, never retried.
	ErrTenantGone = errors.New("tenant deleted")
	// ErrTenantInactive marks a partition whose tenant is deactivated.
	// Dropped like a missing tenant; reactivation re-marks via ingestion.
	ErrTenantInactive = errors.New("tenant inactive")
	// ErrPartitionParked is reported once when a partition exhausts its
	// retry budget and leaves the automatic cycle.
	ErrPartitionParked = errors.New("partition parked after repeated failures")
)

// retryable reports whether the partition should go back on the dirty set.
// Missing or inactive tenants and FK violations are terminal: the referenced
// tenant row is gone and retrying cannot succeed. Timeouts and everything
// else are presumed transient.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrTenantGone), errors.Is(err, ErrTenantInactive):
		return false
	case db.IsForeignKeyErr(err):
		return false
	case errors.Is(err, context.Canceled):
		// Shutdown, not failure. The partition stays dirty for the next
		// process to pick up.
		return true
	default:
		return true
	}
}
