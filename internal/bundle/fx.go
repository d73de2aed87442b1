package bundle

import (
	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	"github.com/mewayz/workspacebilling/internal/bundle/pricing"
	"go.uber.org/fx"
)

var Module = fx.Module("bundle",
	fx.Provide(catalog.Default),
	fx.Provide(pricing.NewCalculator),
)
