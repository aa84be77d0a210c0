package metrics

import (
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/metrics/repository"
)

var Module = fx.Module("metrics",
	fx.Provide(repository.Provide),
)
