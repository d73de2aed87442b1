package migration

import (
	"github.com/mewayz/workspacebilling/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates on startup unless AUTO_MIGRATE is off.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.AutoMigrate {
			log.Info("auto migrate disabled")
			return nil
		}
		return Apply(conn)
	}),
)
