package aggregator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/commercepulse/commercepulse/internal/config"
)

// SweepModule wires the daily sweep: a cron job that marks yesterday dirty
// for every active tenant, so rollups converge even when an ingestion-side
// mark was lost.
var SweepModule = fx.Module("aggregator.sweep",
	fx.Invoke(RunDailySweep),
)

func RunDailySweep(lc fx.Lifecycle, cfg config.Config, engine *Engine, log *zap.Logger) error {
	slog := log.Named("sweep")
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	spec := cfg.Aggregator.DailySweepCron
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		yesterday := engine.clock.Now().UTC().AddDate(0, 0, -1)
		if err := engine.SweepDay(ctx, yesterday); err != nil {
			slog.Warn("daily sweep finished with errors", zap.Error(err))
			return
		}
		slog.Info("daily sweep queued", zap.String("date", yesterday.Format(time.DateOnly)))
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			slog.Info("daily sweep scheduled", zap.String("cron", spec))
			return nil
		},
		OnStop: func(context.Context) error {
			<-c.Stop().Done()
			return nil
		},
	})
	return nil
}
