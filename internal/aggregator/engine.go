package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/commercepulse/commercepulse/internal/clock"
	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	obsmetrics "github.com/commercepulse/commercepulse/internal/observability/metrics"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
	"github.com/commercepulse/commercepulse/pkg/db"
)

var ErrInvalidConfig = errors.New("aggregator: invalid configuration")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Tenants  tenantdomain.Repository
	Commerce commercedomain.Repository
	Rollups  metricsdomain.Repository
	GenID    *snowflake.Node
	Clock    clock.Clock
	Lease    Lease  `optional:"true"`
	Config   Config `optional:"true"`
}

// Engine owns the dirty set and recomputes rollups for dirty partitions.
type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	tenants  tenantdomain.Repository
	commerce commercedomain.Repository
	rollups  metricsdomain.Repository
	guard    guard
	lease    Lease
	pool     pond.Pool

	dirty    *DirtySet
	attempts *xsync.Map[string, int]
	parked   *xsync.Map[string, time.Time]
}

func New(p Params) (*Engine, error) {
	if p.DB == nil || p.Log == nil || p.Tenants == nil || p.Commerce == nil || p.Rollups == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	lease := p.Lease
	if lease == nil {
		lease = NewLocalLease()
	}
	return &Engine{
		db:       p.DB,
		log:      p.Log.Named("aggregator").With(zap.String("component", "aggregator")),
		cfg:      cfg,
		genID:    p.GenID,
		clock:    p.Clock,
		tenants:  p.Tenants,
		commerce: p.Commerce,
		rollups:  p.Rollups,
		guard:    guard{tenants: p.Tenants},
		lease:    lease,
		pool:     pond.NewPool(cfg.Workers),
		dirty:    NewDirtySet(),
		attempts: xsync.NewMap[string, int](),
		parked:   xsync.NewMap[string, time.Time](),
	}, nil
}

// MarkDirty queues a partition for recomputation. Marking any platform also
// marks the tenant's combined partition, because the combined row is a
// recomputation over all platforms and is stale the moment one of them
// changes. Marking a parked partition revives it with a fresh retry budget.
func (e *Engine) MarkDirty(tenantID uuid.UUID, date time.Time, platform string) {
	p := NewPartition(tenantID, date, platform)
	e.mark(p)
	if !p.IsCombined() {
		e.mark(p.Combined())
	}
}

func (e *Engine) mark(p Partition) {
	key := p.Key()
	if _, wasParked := e.parked.LoadAndDelete(key); wasParked {
		e.attempts.Delete(key)
		e.log.Info("partition revived", zap.String("partition", key))
	}
	e.dirty.Mark(p, e.clock.Now())
	obsmetrics.Aggregator().IncDirtyMark()
}

// Backfill marks every day in the inclusive range dirty, per platform with
// orders plus the combined row.
func (e *Engine) Backfill(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error) {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return 0, fmt.Errorf("backfill range inverted: %s after %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	days := 0
	for d := from; !d.After(to); d = d.Add(24 * time.Hour) {
		platforms, err := e.commerce.DistinctPlatforms(ctx, e.db, tenantID, d)
		if err != nil {
			return days, fmt.Errorf("backfill %s: %w", d.Format(time.DateOnly), err)
		}
		for _, platform := range platforms {
			e.MarkDirty(tenantID, d, platform)
		}
		if len(platforms) == 0 {
			// No orders that day; still recompute the combined row so a
			// backfill over deleted data zeroes stale rollups.
			e.MarkDirty(tenantID, d, commercedomain.PlatformAll)
		}
		days++
	}
	return days, nil
}

// SweepDay marks the given day dirty for every active tenant. The cron
// trigger points this at yesterday.
func (e *Engine) SweepDay(ctx context.Context, date time.Time) error {
	tenants, err := e.tenants.ListActive(ctx, e.db)
	if err != nil {
		return fmt.Errorf("sweep: list tenants: %w", err)
	}
	var errs error
	for _, t := range tenants {
		platforms, err := e.commerce.DistinctPlatforms(ctx, e.db, t.ID, date)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("sweep tenant %s: %w", t.ID, err))
			continue
		}
		for _, platform := range platforms {
			e.MarkDirty(t.ID, date, platform)
		}
		if len(platforms) == 0 {
			e.MarkDirty(t.ID, date, commercedomain.PlatformAll)
		}
	}
	return errs
}

// RunCycle drains the dirty set and recomputes every eligible partition on
// the worker pool. Partitions whose lease is held elsewhere are re-queued
// untouched. A cycle with nothing dirty is a no-op.
func (e *Engine) RunCycle(ctx context.Context) error {
	entries := e.dirty.Drain(e.clock.Now())
	if len(entries) == 0 {
		return nil
	}

	aggMetrics := obsmetrics.Aggregator()
	aggMetrics.IncCycleRun()
	runID := e.genID.Generate().String()
	start := time.Now()
	log := e.log.With(zap.String("run_id", runID))
	log.Info("aggregator.cycle.start", zap.Int("partitions", len(entries)))

	var (
		mu   sync.Mutex
		errs error
	)
	group := e.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, entry := range entries {
		entry := entry
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				e.dirty.Defer(entry.Partition, entry.Since, time.Time{})
				return
			}
			if err := e.runPartition(groupCtx, log, entry); err != nil {
				mu.Lock()
				errs = errors.Join(errs, err)
				mu.Unlock()
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		errs = errors.Join(errs, err)
	}

	aggMetrics.ObserveCycleDuration(time.Since(start))
	log.Info("aggregator.cycle.finish",
		zap.Int("partitions", len(entries)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return errs
}

// runPartition wraps one partition in its lease, budget and retry
// bookkeeping.
func (e *Engine) runPartition(ctx context.Context, log *zap.Logger, entry dirtyEntry) error {
	p := entry.Partition
	key := p.Key()
	plog := log.With(
		zap.String("partition", key),
		zap.String("tenant_id", p.TenantID.String()),
	)
	aggMetrics := obsmetrics.Aggregator()

	token, ok, err := e.lease.TryAcquire(ctx, key, e.cfg.LeaseTTL)
	if err != nil {
		e.dirty.Defer(p, entry.Since, time.Time{})
		return fmt.Errorf("lease %s: %w", key, err)
	}
	if !ok {
		aggMetrics.IncPartition(obsmetrics.PartitionOutcomeSkipped)
		plog.Debug("partition leased elsewhere, re-queued")
		e.dirty.Defer(p, entry.Since, time.Time{})
		return nil
	}
	defer func() {
		if err := e.lease.Release(context.WithoutCancel(ctx), key, token); err != nil {
			plog.Warn("lease release failed", zap.Error(err))
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, e.cfg.PartitionTimeout)
	defer cancel()

	start := time.Now()
	err = e.processPartition(pctx, p)
	aggMetrics.ObservePartitionDuration(time.Since(start))

	if err == nil {
		e.attempts.Delete(key)
		aggMetrics.IncPartition(obsmetrics.PartitionOutcomeSucceeded)
		plog.Debug("partition recomputed", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil
	}

	if !retryable(err) {
		e.attempts.Delete(key)
		aggMetrics.IncPartition(obsmetrics.PartitionOutcomeDropped)
		plog.Warn("partition dropped", zap.Error(err))
		return nil
	}

	attempts, _ := e.attempts.Compute(key, func(old int, _ bool) (int, xsync.ComputeOp) {
		return old + 1, xsync.UpdateOp
	})
	if attempts >= e.cfg.MaxAttempts {
		e.parked.Store(key, e.clock.Now())
		aggMetrics.IncPartition(obsmetrics.PartitionOutcomeParked)
		plog.Error("partition parked",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w: %w", key, ErrPartitionParked, err)
	}

	delay := e.cfg.backoff(attempts)
	e.dirty.Defer(p, entry.Since, e.clock.Now().Add(delay))
	aggMetrics.IncPartition(obsmetrics.PartitionOutcomeFailed)
	plog.Warn("partition failed, will retry",
		zap.Int("attempts", attempts),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", key, err)
}

// processPartition recomputes one partition end to end: gather input, fold,
// validate, upsert. The daily and product writes are independent
// transactions so a product failure never rolls back the committed daily
// row; a retry recomputes both and converges.
func (e *Engine) processPartition(ctx context.Context, p Partition) error {
	if err := e.guard.checkTenant(ctx, e.db, p); err != nil {
		return err
	}

	in, err := e.gatherInput(ctx, p)
	if err != nil {
		return err
	}

	row := Accumulate(p, in)
	if err := e.guard.checkRatios(&row); err != nil {
		return fmt.Errorf("guard: %s: %w", p.Key(), err)
	}

	aggMetrics := obsmetrics.Aggregator()
	for flag := range row.Flags {
		aggMetrics.IncQualityFlag(flag)
	}

	now := e.clock.Now()
	row.ID = uuid.New()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := e.rollups.UpsertDaily(ctx, e.db, &row); err != nil {
		if db.IsForeignKeyErr(err) {
			return fmt.Errorf("%w: %s", ErrTenantGone, p.TenantID)
		}
		return fmt.Errorf("upsert daily %s: %w", p.Key(), err)
	}

	if !p.IsCombined() {
		return nil
	}
	products := AccumulateProducts(p, in)
	for i := range products {
		products[i].ID = uuid.New()
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
	}
	if err := e.rollups.UpsertProducts(ctx, e.db, products); err != nil {
		if db.IsForeignKeyErr(err) {
			return fmt.Errorf("%w: %s", ErrTenantGone, p.TenantID)
		}
		return fmt.Errorf("upsert products %s: %w", p.Key(), err)
	}
	return nil
}

func (e *Engine) gatherInput(ctx context.Context, p Partition) (PartitionInput, error) {
	var in PartitionInput

	orders, err := e.commerce.OrdersForPartition(ctx, e.db, p.TenantID, p.Date, p.Platform)
	if err != nil {
		return in, fmt.Errorf("load orders: %w", err)
	}
	orderIDs := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	items, err := e.commerce.ItemsForOrders(ctx, e.db, p.TenantID, orderIDs)
	if err != nil {
		return in, fmt.Errorf("load items: %w", err)
	}
	costs, err := e.commerce.UnitCosts(ctx, e.db, p.TenantID)
	if err != nil {
		return in, fmt.Errorf("load costs: %w", err)
	}
	adSpend, err := e.commerce.AdSpend(ctx, e.db, p.TenantID, p.Date, p.Platform)
	if err != nil {
		return in, fmt.Errorf("load ad spend: %w", err)
	}
	invValue, err := e.commerce.InventoryValue(ctx, e.db, p.TenantID, p.Platform)
	if err != nil {
		return in, fmt.Errorf("load inventory value: %w", err)
	}

	in = PartitionInput{
		Orders:         orders,
		Items:          items,
		UnitCosts:      costs,
		AdSpend:        adSpend,
		InventoryValue: invValue,
	}
	if p.IsCombined() {
		products, err := e.commerce.ProductsByExternalID(ctx, e.db, p.TenantID)
		if err != nil {
			return in, fmt.Errorf("load products: %w", err)
		}
		in.Products = products
	}
	return in, nil
}

// Pending reports the dirty-set depth, deferred partitions included.
func (e *Engine) Pending() int {
	return e.dirty.Len()
}

// Parked lists partitions excluded from automatic retry.
func (e *Engine) Parked() []string {
	var keys []string
	e.parked.Range(func(key string, _ time.Time) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// RunForever drives RunCycle on the configured interval until the context
// ends.
func (e *Engine) RunForever(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.RunInterval)
	defer ticker.Stop()
	for {
		if err := e.RunCycle(ctx); err != nil {
			e.log.Warn("aggregation cycle finished with errors", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			e.pool.StopAndWait()
			return
		case <-ticker.C:
		}
	}
}
