// Package domain contains the rollup tables the aggregation engine writes.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

// Data quality flags recorded on rollup rows.
const (
	FlagIncompleteCost        = "incomplete_cost"
	FlagRefundRateOutOfRange  = "refund_rate_out_of_range"
	FlagRefundsExceedSales    = "refunds_exceed_sales"
	FlagFulfillmentOutOfRange = "fulfillment_rate_out_of_range"
)

// UnifiedMetricsDaily is one tenant's rollup for one calendar day on one
// platform. The empty platform value is the combined all-platform row.
// Writers upsert on (tenant_id, date, platform); created_at survives
// re-aggregation, updated_at does not.
type UnifiedMetricsDaily struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_unified_metrics_daily,priority:1"`
	Tenant          *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Date            time.Time            `gorm:"type:date;not null;uniqueIndex:ux_unified_metrics_daily,priority:2"`
	Platform        string               `gorm:"type:varchar(50);not null;default:'';uniqueIndex:ux_unified_metrics_daily,priority:3"`
	TotalOrders     int64                `gorm:"not null;default:0"`
	TotalSales      decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	NetSales        decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	Discounts       decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	Taxes           decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	Refunds         decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	UnitsSold       int64                `gorm:"not null;default:0"`
	AdSpend         decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	InventoryValue  decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	GrossProfit     decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	NetProfit       decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	AOV             decimal.Decimal      `gorm:"column:aov;type:numeric(10,2);not null;default:0"`
	FulfillmentRate decimal.Decimal      `gorm:"type:numeric(5,4);not null;default:0"`
	RefundRate      decimal.Decimal      `gorm:"type:numeric(5,4);not null;default:0"`
	Flags           datatypes.JSONMap    `gorm:"type:jsonb"`
	CreatedAt       time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedMetricsDaily) TableName() string { return "unified_metrics_daily" }

// ProductMetrics is the per-product daily rollup. Platform-agnostic: one row
// per product per day regardless of how many platforms sold it.
type ProductMetrics struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_product_metrics,priority:1"`
	Tenant            *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	ProductExternalID string               `gorm:"type:varchar(255);not null;uniqueIndex:ux_product_metrics,priority:2"`
	SKU               string               `gorm:"column:sku;type:varchar(255)"`
	Date              time.Time            `gorm:"type:date;not null;uniqueIndex:ux_product_metrics,priority:3"`
	Revenue           decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	UnitsSold         int64                `gorm:"not null;default:0"`
	ConversionRate    *decimal.Decimal     `gorm:"type:numeric(5,4)"`
	BuyBoxPercent     *decimal.Decimal     `gorm:"type:numeric(5,4)"`
	CreatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProductMetrics) TableName() string { return "product_metrics" }
