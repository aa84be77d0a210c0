package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/commercepulse/commercepulse/internal/config"
	"github.com/commercepulse/commercepulse/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "sqlite" {
			// The embedded migrations are written for postgres; sqlite is
			// a local convenience and goes through GORM's schema sync.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
			return seed.EnsureDefaultTenant(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		return seed.EnsureDefaultTenant(conn)
	}),
)
