package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
)

type repo struct{}

func Provide() commercedomain.Repository {
	return &repo{}
}

// dayBounds returns the UTC half-open interval covering the calendar day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (r *repo) OrdersForPartition(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) ([]commercedomain.UnifiedOrder, error) {
	start, end := dayBounds(date)
	q := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("order_date >= ? AND order_date < ?", start, end)
	if platform != commercedomain.PlatformAll {
		q = q.Where("platform = ?", platform)
	}
	var orders []commercedomain.UnifiedOrder
	if err := q.Order("order_date ASC, id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ItemsForOrders(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, orderIDs []uuid.UUID) ([]commercedomain.UnifiedOrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var items []commercedomain.UnifiedOrderItem
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("order_id IN ?", orderIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UnitCosts(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		ExternalProductID string
		Cost              decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT external_product_id, cost
		 FROM unified_products
		 WHERE tenant_id = ? AND cost IS NOT NULL`,
		tenantID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	costs := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		costs[row.ExternalProductID] = row.Cost
	}
	return costs, nil
}

func (r *repo) InventoryValue(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, platform string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(i.on_hand * p.cost), 0) AS value
		 FROM unified_inventory i
		 JOIN unified_products p
		   ON p.tenant_id = i.tenant_id
		  AND p.platform = i.platform
		  AND p.external_product_id = i.product_external_id
		 WHERE i.tenant_id = ? AND p.cost IS NOT NULL`
	args := []any{tenantID}
	if platform != commercedomain.PlatformAll {
		query += ` AND i.platform = ?`
		args = append(args, platform)
	}
	var row struct {
		Value decimal.Decimal
	}
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Value, nil
}

func (r *repo) AdSpend(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) (decimal.Decimal, error) {
	start, end := dayBounds(date)
	query := `SELECT COALESCE(SUM(amount), 0) AS spend
		 FROM ad_spend_daily
		 WHERE tenant_id = ? AND date >= ? AND date < ?`
	args := []any{tenantID, start, end}
	if platform != commercedomain.PlatformAll {
		query += ` AND platform = ?`
		args = append(args, platform)
	}
	var row struct {
		Spend decimal.Decimal
	}
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Spend, nil
}

func (r *repo) ProductsByExternalID(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) (map[string]commercedomain.UnifiedProduct, error) {
	var products []commercedomain.UnifiedProduct
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[string]commercedomain.UnifiedProduct, len(products))
	for _, p := range products {
		byID[p.ExternalProductID] = p
	}
	return byID, nil
}

func (r *repo) DistinctPlatforms(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time) ([]string, error) {
	start, end := dayBounds(date)
	var platforms []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT platform
		 FROM unified_orders
		 WHERE tenant_id = ? AND order_date >= ? AND order_date < ?
		 ORDER BY platform ASC`,
		tenantID, start, end,
	).Scan(&platforms).Error
	if err != nil {
		return nil, err
	}
	return platforms, nil
}

func (r *repo) CreateOrder(ctx context.Context, db *gorm.DB, order *commercedomain.UnifiedOrder, items []commercedomain.UnifiedOrderItem) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
			items[i].TenantID = order.TenantID
			items[i].Platform = order.Platform
		}
		return tx.Create(&items).Error
	})
}
