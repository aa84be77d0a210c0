package tenant

import (
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/tenant/repository"
)

var Module = fx.Module("tenant",
	fx.Provide(repository.Provide),
)
