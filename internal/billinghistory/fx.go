package billinghistory

import (
	"github.com/mewayz/workspacebilling/internal/billinghistory/repository"
	"github.com/mewayz/workspacebilling/internal/billinghistory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billinghistory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
