package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	"github.com/commercepulse/commercepulse/internal/migration"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
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

func createTenant(t *testing.T, db *gorm.DB) tenantdomain.Tenant {
	t.Helper()
	tenant := tenantdomain.Tenant{
		ID:        uuid.New(),
		Name:      "Acme Outdoors",
		APIKey:    uuid.NewString(),
		IsActive:  true,
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}

func dailyRow(tenantID uuid.UUID, platform string, orders int64, netSales string, at time.Time) metricsdomain.UnifiedMetricsDaily {
	return metricsdomain.UnifiedMetricsDaily{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Date:        testDay,
		Platform:    platform,
		TotalOrders: orders,
		NetSales:    decimal.RequireFromString(netSales),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestUpsertDailyInsertThenReplace(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	tenant := createTenant(t, db)

	first := dailyRow(tenant.ID, "shopify", 3, "150.00", testDay.Add(26*time.Hour))
	require.NoError(t, repo.UpsertDaily(ctx, db, &first))

	// same partition recomputed later with different values and a new id
	second := dailyRow(tenant.ID, "shopify", 4, "210.00", testDay.Add(27*time.Hour))
	second.Flags = datatypes.JSONMap{metricsdomain.FlagIncompleteCost: true}
	require.NoError(t, repo.UpsertDaily(ctx, db, &second))

	stored, err := repo.FindDaily(ctx, db, tenant.ID, testDay, "shopify")
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, first.ID, stored.ID, "conflict keeps the original row")
	assert.Equal(t, int64(4), stored.TotalOrders, "non-key fields fully replaced")
	assert.True(t, stored.NetSales.Equal(decimal.RequireFromString("210.00")))
	assert.Contains(t, stored.Flags, metricsdomain.FlagIncompleteCost)
	assert.True(t, stored.CreatedAt.Equal(first.CreatedAt), "created_at set only on first insert")
	assert.True(t, stored.UpdatedAt.Equal(second.UpdatedAt), "updated_at follows every write")

	var count int64
	require.NoError(t, db.Model(&metricsdomain.UnifiedMetricsDaily{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "exactly one row per unique key")
}

func TestUpsertDailyCombinedAndPlatformRowsCoexist(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	tenant := createTenant(t, db)

	platform := dailyRow(tenant.ID, "shopify", 2, "80.00", testDay)
	combined := dailyRow(tenant.ID, "", 5, "200.00", testDay)
	require.NoError(t, repo.UpsertDaily(ctx, db, &platform))
	require.NoError(t, repo.UpsertDaily(ctx, db, &combined))

	got, err := repo.FindDaily(ctx, db, tenant.ID, testDay, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.TotalOrders)

	got, err = repo.FindDaily(ctx, db, tenant.ID, testDay, "shopify")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.TotalOrders)
}

func TestUpsertProductsReplacesOnConflict(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	tenant := createTenant(t, db)

	first := metricsdomain.ProductMetrics{
		ID:                uuid.New(),
		TenantID:          tenant.ID,
		ProductExternalID: "P1",
		SKU:               "SKU-1",
		Date:              testDay,
		Revenue:           decimal.RequireFromString("100.00"),
		UnitsSold:         2,
		CreatedAt:         testDay,
		UpdatedAt:         testDay,
	}
	require.NoError(t, repo.UpsertProducts(ctx, db, []metricsdomain.ProductMetrics{first}))

	second := first
	second.ID = uuid.New()
	second.Revenue = decimal.RequireFromString("130.00")
	second.UnitsSold = 3
	second.UpdatedAt = testDay.Add(time.Hour)
	require.NoError(t, repo.UpsertProducts(ctx, db, []metricsdomain.ProductMetrics{second}))

	rows, err := repo.ListProducts(ctx, db, tenant.ID, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.True(t, rows[0].Revenue.Equal(second.Revenue))
	assert.Equal(t, int64(3), rows[0].UnitsSold)
	assert.True(t, rows[0].CreatedAt.Equal(first.CreatedAt))
}

func TestListDailyRange(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	tenant := createTenant(t, db)

	for i := 0; i < 5; i++ {
		row := dailyRow(tenant.ID, "", 1, "10.00", testDay)
		row.Date = testDay.AddDate(0, 0, -i)
		require.NoError(t, repo.UpsertDaily(ctx, db, &row))
	}

	rows, err := repo.ListDaily(ctx, db, tenant.ID, testDay.AddDate(0, 0, -2), testDay, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3, "range is inclusive on both ends")
}

func TestTenantDeleteCascadesRollups(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	tenant := createTenant(t, db)

	row := dailyRow(tenant.ID, "shopify", 1, "10.00", testDay)
	require.NoError(t, repo.UpsertDaily(ctx, db, &row))

	require.NoError(t, db.Delete(&tenantdomain.Tenant{}, "id = ?", tenant.ID).Error)

	var count int64
	require.NoError(t, db.Model(&metricsdomain.UnifiedMetricsDaily{}).Count(&count).Error)
	assert.Zero(t, count, "rollups are removed with their tenant")
}

func TestUpsertDailyRejectsUnknownTenant(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	row := dailyRow(uuid.New(), "shopify", 1, "10.00", testDay)
	err := repo.UpsertDaily(ctx, db, &row)
	require.Error(t, err, "FK violation surfaces instead of writing an orphan row")
}
