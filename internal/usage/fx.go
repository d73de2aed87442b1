package usage

import (
	"github.com/mewayz/workspacebilling/internal/usage/repository"
	"github.com/mewayz/workspacebilling/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
