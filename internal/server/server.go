// Package server is the thin operational HTTP surface: dirty-partition
// triggers, backfill, rollup reads and health.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/commercepulse/commercepulse/internal/aggregator"
	"github.com/commercepulse/commercepulse/internal/config"
	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	engineAg *aggregator.Engine
	tenants  tenantdomain.Repository
	rollups  metricsdomain.Repository
}

type Params struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Aggregator *aggregator.Engine
	Tenants    tenantdomain.Repository
	Rollups    metricsdomain.Repository
}

func NewServer(p Params) *Server {
	return &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		db:       p.DB,
		log:      p.Log.Named("server"),
		engineAg: p.Aggregator,
		tenants:  p.Tenants,
		rollups:  p.Rollups,
	}
}

func registerRoutes(s *Server) {
	s.RegisterOpsRoutes()
}

// RegisterOpsRoutes mounts the operational API. Every tenant-scoped route
// authenticates with the tenant's API key.
func (s *Server) RegisterOpsRoutes() {
	v1 := s.engine.Group("/v1", s.requireTenant())
	v1.POST("/partitions/dirty", s.markDirty)
	v1.POST("/metrics/backfill", s.backfillMetrics)
	v1.GET("/metrics/daily", s.listDailyMetrics)
	v1.GET("/metrics/products", s.listProductMetrics)

	s.engine.GET("/v1/aggregator/status", s.aggregatorStatus)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
