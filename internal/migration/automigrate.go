package migration

import (
	"gorm.io/gorm"

	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

// AutoMigrate syncs the full schema through GORM. Used for sqlite and by
// package tests; postgres deployments use the embedded SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&tenantdomain.Tenant{},
		&tenantdomain.User{},
		&tenantdomain.PlatformIntegration{},
		&commercedomain.UnifiedOrder{},
		&commercedomain.UnifiedOrderItem{},
		&commercedomain.UnifiedProduct{},
		&commercedomain.UnifiedInventory{},
		&commercedomain.AdSpendDaily{},
		&metricsdomain.UnifiedMetricsDaily{},
		&metricsdomain.ProductMetrics{},
	)
}
