package subscription

import (
	"github.com/mewayz/workspacebilling/internal/subscription/repository"
	"github.com/mewayz/workspacebilling/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
