package commerce

import (
	"go.uber.org/fx"

	"github.com/commercepulse/commercepulse/internal/commerce/repository"
)

var Module = fx.Module("commerce",
	fx.Provide(repository.Provide),
)
