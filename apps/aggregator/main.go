package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/aggregator"
	"github.com/commercepulse/commercepulse/internal/clock"
	"github.com/commercepulse/commercepulse/internal/commerce"
	"github.com/commercepulse/commercepulse/internal/config"
	"github.com/commercepulse/commercepulse/internal/metrics"
	"github.com/commercepulse/commercepulse/internal/observability"
	"github.com/commercepulse/commercepulse/internal/tenant"
	"github.com/commercepulse/commercepulse/pkg/db"
)

// Aggregation-only process: no HTTP surface, no migrations. Points at a
// database the monolith (or a migration job) has already prepared.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		tenant.Module,
		commerce.Module,
		metrics.Module,

		aggregator.Module,
		aggregator.SweepModule,
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
