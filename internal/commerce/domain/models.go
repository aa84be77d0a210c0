// Package domain contains the unified commerce models. Connectors for each
// platform normalize their payloads into these tables; the aggregation
// engine only ever reads the unified form.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

// UnifiedOrder is one order from one platform, normalized. The triple
// (tenant_id, platform, external_order_id) is unique so connector re-syncs
// update in place instead of duplicating.
type UnifiedOrder struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_unified_orders_source,priority:1;index:ix_unified_orders_partition,priority:1"`
	Tenant             *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Platform           string               `gorm:"type:varchar(50);not null;uniqueIndex:ux_unified_orders_source,priority:2;index:ix_unified_orders_partition,priority:2"`
	ExternalOrderID    string               `gorm:"type:varchar(255);not null;uniqueIndex:ux_unified_orders_source,priority:3"`
	CustomerExternalID string               `gorm:"type:varchar(255)"`
	OrderNumber        string               `gorm:"type:varchar(255)"`
	OrderDate          time.Time            `gorm:"not null;index:ix_unified_orders_partition,priority:3"`
	FinancialStatus    string               `gorm:"type:varchar(50)"`
	FulfillmentStatus  string               `gorm:"type:varchar(50)"`
	Channel            string               `gorm:"type:varchar(100)"`
	GrossSales         decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	NetSales           decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	TotalTax           decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	DiscountAmount     decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	ShippingAmount     decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	RefundAmount       decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	TotalFees          decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	NetPayout          decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	Currency           string               `gorm:"type:varchar(10);not null;default:'USD'"`
	CreatedAt          time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedOrder) TableName() string { return "unified_orders" }

// UnifiedOrderItem is one line of a unified order.
type UnifiedOrderItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Order             *UnifiedOrder   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Platform          string          `gorm:"type:varchar(50);not null"`
	ExternalLineID    string          `gorm:"type:varchar(255)"`
	ProductExternalID string          `gorm:"type:varchar(255);index"`
	SKU               string          `gorm:"column:sku;type:varchar(255)"`
	Quantity          decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Price             decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Total             decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Discount          decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Tax               decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedOrderItem) TableName() string { return "unified_order_items" }

// UnifiedProduct is the tenant's catalog entry for one platform product.
type UnifiedProduct struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_unified_products_source,priority:1"`
	Tenant            *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Platform          string               `gorm:"type:varchar(50);not null;uniqueIndex:ux_unified_products_source,priority:2"`
	ExternalProductID string               `gorm:"type:varchar(255);not null;uniqueIndex:ux_unified_products_source,priority:3"`
	SKU               string               `gorm:"column:sku;type:varchar(255);index"`
	Title             string               `gorm:"type:varchar(512)"`
	Brand             string               `gorm:"type:varchar(255)"`
	Category          string               `gorm:"type:varchar(255)"`
	Price             decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	Cost              *decimal.Decimal     `gorm:"type:numeric(15,2)"`
	IsSuppressed      bool                 `gorm:"not null;default:false"`
	BuyBoxPercent     *decimal.Decimal     `gorm:"type:numeric(5,4)"`
	ConversionRate    *decimal.Decimal     `gorm:"type:numeric(5,4)"`
	CreatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedProduct) TableName() string { return "unified_products" }

// UnifiedInventory is the latest stock snapshot for one product at one
// location. Valuation multiplies on-hand units by catalog cost.
type UnifiedInventory struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	Tenant            *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Platform          string               `gorm:"type:varchar(50);not null"`
	ProductExternalID string               `gorm:"type:varchar(255);not null"`
	SKU               string               `gorm:"column:sku;type:varchar(255)"`
	Location          string               `gorm:"type:varchar(255)"`
	OnHand            int64                `gorm:"not null;default:0"`
	Available         int64                `gorm:"not null;default:0"`
	Reserved          int64                `gorm:"not null;default:0"`
	Inbound           int64                `gorm:"not null;default:0"`
	UpdatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UnifiedInventory) TableName() string { return "unified_inventory" }

// AdSpendDaily is externally-reported advertising spend per platform and
// day, joined into rollups as-is.
type AdSpendDaily struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:ux_ad_spend_daily,priority:1"`
	Tenant    *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Platform  string               `gorm:"type:varchar(50);not null;uniqueIndex:ux_ad_spend_daily,priority:2"`
	Date      time.Time            `gorm:"type:date;not null;uniqueIndex:ux_ad_spend_daily,priority:3"`
	Amount    decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	CreatedAt time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AdSpendDaily) TableName() string { return "ad_spend_daily" }
