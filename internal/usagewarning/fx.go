package usagewarning

import (
	"github.com/mewayz/workspacebilling/internal/usagewarning/repository"
	"github.com/mewayz/workspacebilling/internal/usagewarning/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usagewarning.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
