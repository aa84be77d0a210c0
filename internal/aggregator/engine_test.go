package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/commercepulse/commercepulse/internal/clock"
	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
	commercerepo "github.com/commercepulse/commercepulse/internal/commerce/repository"
	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	metricsrepo "github.com/commercepulse/commercepulse/internal/metrics/repository"
	"github.com/commercepulse/commercepulse/internal/migration"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
	tenantrepo "github.com/commercepulse/commercepulse/internal/tenant/repository"
)

var testDay = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

type engineFixture struct {
	db     *gorm.DB
	engine *Engine
	clock  *clock.FakeClock
	tenant tenantdomain.Tenant
}

func newEngineFixture(t *testing.T, cfg Config) *engineFixture {
	t.Helper()
	db := openTestDB(t)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(testDay.Add(26 * time.Hour))
	engine, err := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Tenants:  tenantrepo.Provide(),
		Commerce: commercerepo.Provide(),
		Rollups:  metricsrepo.Provide(),
		GenID:    node,
		Clock:    fakeClock,
		Config:   cfg,
	})
	require.NoError(t, err)

	tenant := tenantdomain.Tenant{
		ID:        uuid.New(),
		Name:      "Acme Outdoors",
		APIKey:    uuid.NewString(),
		IsActive:  true,
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	require.NoError(t, db.Create(&tenant).Error)

	return &engineFixture{db: db, engine: engine, clock: fakeClock, tenant: tenant}
}

func (f *engineFixture) createOrder(t *testing.T, platform, externalID, netSales, refund, fulfillment string, items ...commercedomain.UnifiedOrderItem) {
	t.Helper()
	o := commercedomain.UnifiedOrder{
		ID:                uuid.New(),
		TenantID:          f.tenant.ID,
		Platform:          platform,
		ExternalOrderID:   externalID,
		OrderDate:         testDay.Add(12 * time.Hour),
		FulfillmentStatus: fulfillment,
		GrossSales:        dec(netSales),
		NetSales:          dec(netSales),
		RefundAmount:      dec(refund),
		Currency:          "USD",
		CreatedAt:         testDay,
		UpdatedAt:         testDay,
	}
	require.NoError(t, f.db.Create(&o).Error)
	for i := range items {
		items[i].ID = uuid.New()
		items[i].TenantID = f.tenant.ID
		items[i].OrderID = o.ID
		items[i].Platform = platform
		require.NoError(t, f.db.Create(&items[i]).Error)
	}
}

func (f *engineFixture) dailyRow(t *testing.T, platform string) *metricsdomain.UnifiedMetricsDaily {
	t.Helper()
	row, err := f.engine.rollups.FindDaily(context.Background(), f.db, f.tenant.ID, testDay, platform)
	require.NoError(t, err)
	return row
}

func TestRunCycleWorkedExample(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.createOrder(t, "shopify", "1001", "100.00", "0", "fulfilled",
		commercedomain.UnifiedOrderItem{ProductExternalID: "P1", SKU: "SKU-1", Quantity: dec("2"), Total: dec("100.00")})
	f.createOrder(t, "shopify", "1002", "50.00", "0", "fulfilled",
		commercedomain.UnifiedOrderItem{ProductExternalID: "P2", SKU: "SKU-2", Quantity: dec("1"), Total: dec("50.00")})
	f.createOrder(t, "shopify", "1003", "0.00", "50.00", "unfulfilled")

	f.engine.MarkDirty(f.tenant.ID, testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()))

	row := f.dailyRow(t, "shopify")
	require.NotNil(t, row)
	assert.Equal(t, int64(3), row.TotalOrders)
	assert.True(t, row.NetSales.Equal(dec("150.00")), "net_sales = %s", row.NetSales)
	assert.True(t, row.Refunds.Equal(dec("50.00")))
	assert.True(t, row.AOV.Equal(dec("50.00")), "aov = %s", row.AOV)
	assert.True(t, row.FulfillmentRate.Equal(dec("0.6667")), "fulfillment_rate = %s", row.FulfillmentRate)
	assert.True(t, row.RefundRate.Equal(dec("0.3333")), "refund_rate = %s", row.RefundRate)

	// marking shopify also recomputed the combined row
	combined := f.dailyRow(t, commercedomain.PlatformAll)
	require.NotNil(t, combined)
	assert.Equal(t, int64(3), combined.TotalOrders)

	// product rollups land with the combined partition
	var products []metricsdomain.ProductMetrics
	require.NoError(t, f.db.Where("tenant_id = ?", f.tenant.ID).Order("product_external_id").Find(&products).Error)
	require.Len(t, products, 2)
	assert.Equal(t, "P1", products[0].ProductExternalID)
	assert.True(t, products[0].Revenue.Equal(dec("100.00")))
	assert.Equal(t, int64(2), products[0].UnitsSold)
}

func TestRunCycleIdempotent(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.createOrder(t, "shopify", "2001", "75.00", "0", "fulfilled")

	f.engine.MarkDirty(f.tenant.ID, testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()))
	first := f.dailyRow(t, "shopify")
	require.NotNil(t, first)

	// nothing dirty: the cycle is a no-op
	require.NoError(t, f.engine.RunCycle(context.Background()))
	assert.Zero(t, f.engine.Pending())

	// unchanged data reprocessed converges to the same values
	f.clock.Advance(time.Hour)
	f.engine.MarkDirty(f.tenant.ID, testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()))
	second := f.dailyRow(t, "shopify")
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID, "upsert keeps the original row")
	assert.Equal(t, first.TotalOrders, second.TotalOrders)
	assert.True(t, first.NetSales.Equal(second.NetSales))
	assert.True(t, first.AOV.Equal(second.AOV))
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at survives re-aggregation")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at moves on every write")
}

func TestRunCycleDropsMissingTenant(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.engine.MarkDirty(uuid.New(), testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()), "missing tenant is dropped, not surfaced")
	assert.Zero(t, f.engine.Pending(), "dropped partitions are not re-queued")
	assert.Empty(t, f.engine.Parked())
}

func TestRunCycleDropsInactiveTenant(t *testing.T) {
	f := newEngineFixture(t, Config{})
	require.NoError(t, f.db.Model(&f.tenant).Update("is_active", false).Error)

	f.engine.MarkDirty(f.tenant.ID, testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()))
	assert.Zero(t, f.engine.Pending())
	assert.Nil(t, f.dailyRow(t, "shopify"), "no rollup written for inactive tenant")
}

// failingCommerce simulates a transient storage fault on order reads.
type failingCommerce struct {
	commercedomain.Repository
	fail bool
}

func (f *failingCommerce) OrdersForPartition(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) ([]commercedomain.UnifiedOrder, error) {
	if f.fail {
		return nil, errors.New("connection reset")
	}
	return f.Repository.OrdersForPartition(ctx, db, tenantID, date, platform)
}

func TestTransientFailureBacksOffThenParks(t *testing.T) {
	f := newEngineFixture(t, Config{
		MaxAttempts: 2,
		BackoffBase: time.Minute,
		BackoffCap:  10 * time.Minute,
	})
	failing := &failingCommerce{Repository: f.engine.commerce, fail: true}
	f.engine.commerce = failing

	p := NewPartition(f.tenant.ID, testDay, commercedomain.PlatformAll)
	f.engine.MarkDirty(f.tenant.ID, testDay, commercedomain.PlatformAll)

	// first failure: re-queued with backoff
	require.Error(t, f.engine.RunCycle(context.Background()))
	assert.Equal(t, 1, f.engine.Pending())
	assert.Empty(t, f.engine.Parked())

	// inside the backoff window nothing is eligible
	require.NoError(t, f.engine.RunCycle(context.Background()))
	assert.Equal(t, 1, f.engine.Pending())

	// second failure crosses MaxAttempts: parked, out of the cycle
	f.clock.Advance(2 * time.Minute)
	err := f.engine.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrPartitionParked)
	assert.Zero(t, f.engine.Pending())
	assert.Contains(t, f.engine.Parked(), p.Key())

	// manual re-mark revives with a fresh budget; the fault is gone
	failing.fail = false
	f.engine.MarkDirty(f.tenant.ID, testDay, commercedomain.PlatformAll)
	assert.Empty(t, f.engine.Parked())
	require.NoError(t, f.engine.RunCycle(context.Background()))
	require.NotNil(t, f.dailyRow(t, commercedomain.PlatformAll))
}

func TestLeasedPartitionIsSkippedAndRequeued(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.createOrder(t, "shopify", "3001", "10.00", "0", "fulfilled")

	p := NewPartition(f.tenant.ID, testDay, "shopify")
	_, ok, err := f.engine.lease.TryAcquire(context.Background(), p.Key(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	f.engine.MarkDirty(f.tenant.ID, testDay, "shopify")
	require.NoError(t, f.engine.RunCycle(context.Background()))

	// combined partition processed, the leased one went back on the set
	assert.Equal(t, 1, f.engine.Pending())
	assert.Nil(t, f.dailyRow(t, "shopify"))
	assert.NotNil(t, f.dailyRow(t, commercedomain.PlatformAll))
}

func TestBackfillMarksInclusiveRange(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.createOrder(t, "shopify", "4001", "10.00", "0", "fulfilled")

	days, err := f.engine.Backfill(context.Background(), f.tenant.ID, testDay.AddDate(0, 0, -2), testDay)
	require.NoError(t, err)
	assert.Equal(t, 3, days)
	// two empty days queue only their combined partition; the day with an
	// order queues shopify plus combined
	assert.Equal(t, 4, f.engine.Pending())

	_, err = f.engine.Backfill(context.Background(), f.tenant.ID, testDay, testDay.AddDate(0, 0, -1))
	assert.Error(t, err, "inverted range is rejected")
}

func TestSweepDayMarksActiveTenants(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.createOrder(t, "shopify", "5001", "10.00", "0", "fulfilled")

	inactive := tenantdomain.Tenant{
		ID:        uuid.New(),
		Name:      "Dormant",
		APIKey:    uuid.NewString(),
		IsActive:  false,
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	require.NoError(t, f.db.Create(&inactive).Error)

	require.NoError(t, f.engine.SweepDay(context.Background(), testDay))
	// active tenant: shopify + combined; inactive tenant: nothing
	assert.Equal(t, 2, f.engine.Pending())
}
