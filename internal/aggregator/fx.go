package aggregator

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/config"
)

var Module = fx.Module("aggregator",
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLease),
	fx.Provide(New),
	fx.Invoke(RunEngine),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.Aggregator.RunInterval,
		Workers:          cfg.Aggregator.Workers,
		PartitionTimeout: cfg.Aggregator.PartitionTimeout,
		LeaseTTL:         cfg.Aggregator.LeaseTTL,
		MaxAttempts:      cfg.Aggregator.MaxAttempts,
		BackoffBase:      cfg.Aggregator.BackoffBase,
		BackoffCap:       cfg.Aggregator.BackoffCap,
	}
}

// ProvideLease picks the lease backend: Redis when an address is configured
// so several aggregator instances can share the partition space, in-process
// otherwise.
func ProvideLease(cfg config.Config) Lease {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return NewLocalLease()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return NewRedisLease(client)
}

func RunEngine(lc fx.Lifecycle, engine *Engine) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go engine.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
