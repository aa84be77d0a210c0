package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
)

type repo struct{}

func Provide() metricsdomain.Repository {
	return &repo{}
}

// dayStart normalizes the partition date to midnight UTC so equality
// comparisons behave across drivers.
func dayStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *repo) UpsertDaily(ctx context.Context, db *gorm.DB, row *metricsdomain.UnifiedMetricsDaily) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO unified_metrics_daily (
		     id, tenant_id, date, platform,
		     total_orders, total_sales, net_sales, discounts, taxes, refunds,
		     units_sold, ad_spend, inventory_value, gross_profit, net_profit,
		     aov, fulfillment_rate, refund_rate, flags, created_at, updated_at
		 )
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, date, platform)
		 DO UPDATE SET total_orders = EXCLUDED.total_orders,
		               total_sales = EXCLUDED.total_sales,
		               net_sales = EXCLUDED.net_sales,
		               discounts = EXCLUDED.discounts,
		               taxes = EXCLUDED.taxes,
		               refunds = EXCLUDED.refunds,
		               units_sold = EXCLUDED.units_sold,
		               ad_spend = EXCLUDED.ad_spend,
		               inventory_value = EXCLUDED.inventory_value,
		               gross_profit = EXCLUDED.gross_profit,
		               net_profit = EXCLUDED.net_profit,
		               aov = EXCLUDED.aov,
		               fulfillment_rate = EXCLUDED.fulfillment_rate,
		               refund_rate = EXCLUDED.refund_rate,
		               flags = EXCLUDED.flags,
		               updated_at = EXCLUDED.updated_at`,
		row.ID,
		row.TenantID,
		dayStart(row.Date),
		row.Platform,
		row.TotalOrders,
		row.TotalSales,
		row.NetSales,
		row.Discounts,
		row.Taxes,
		row.Refunds,
		row.UnitsSold,
		row.AdSpend,
		row.InventoryValue,
		row.GrossProfit,
		row.NetProfit,
		row.AOV,
		row.FulfillmentRate,
		row.RefundRate,
		row.Flags,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) UpsertProducts(ctx context.Context, db *gorm.DB, rows []metricsdomain.ProductMetrics) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			err := tx.Exec(
				`INSERT INTO product_metrics (
				     id, tenant_id, product_external_id, sku, date,
				     revenue, units_sold, conversion_rate, buy_box_percent,
				     created_at, updated_at
				 )
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (tenant_id, product_external_id, date)
				 DO UPDATE SET sku = EXCLUDED.sku,
				               revenue = EXCLUDED.revenue,
				               units_sold = EXCLUDED.units_sold,
				               conversion_rate = EXCLUDED.conversion_rate,
				               buy_box_percent = EXCLUDED.buy_box_percent,
				               updated_at = EXCLUDED.updated_at`,
				row.ID,
				row.TenantID,
				row.ProductExternalID,
				row.SKU,
				dayStart(row.Date),
				row.Revenue,
				row.UnitsSold,
				row.ConversionRate,
				row.BuyBoxPercent,
				row.CreatedAt,
				row.UpdatedAt,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) FindDaily(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, date time.Time, platform string) (*metricsdomain.UnifiedMetricsDaily, error) {
	var row metricsdomain.UnifiedMetricsDaily
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND date = ? AND platform = ?", tenantID, dayStart(date), platform).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) ListDaily(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, from, to time.Time, platform string) ([]metricsdomain.UnifiedMetricsDaily, error) {
	var rows []metricsdomain.UnifiedMetricsDaily
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ?", tenantID, platform).
		Where("date >= ? AND date <= ?", dayStart(from), dayStart(to)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]metricsdomain.ProductMetrics, error) {
	var rows []metricsdomain.ProductMetrics
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("date >= ? AND date <= ?", dayStart(from), dayStart(to)).
		Order("date ASC, product_external_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
