package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/aggregator"
	"github.com/commercepulse/commercepulse/internal/clock"
	"github.com/commercepulse/commercepulse/internal/commerce"
	"github.com/commercepulse/commercepulse/internal/config"
	"github.com/commercepulse/commercepulse/internal/metrics"
	"github.com/commercepulse/commercepulse/internal/migration"
	"github.com/commercepulse/commercepulse/internal/observability"
	"github.com/commercepulse/commercepulse/internal/server"
	"github.com/commercepulse/commercepulse/internal/tenant"
	"github.com/commercepulse/commercepulse/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domains
		tenant.Module,
		commerce.Module,
		metrics.Module,

		// Engine and ops surface
		aggregator.Module,
		aggregator.SweepModule,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
