package main

import (
	"context"
	"time"

	"github.com/mewayz/workspacebilling/internal/config"
	"github.com/mewayz/workspacebilling/internal/migration"
	"github.com/mewayz/workspacebilling/internal/observability"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				db.Module,
				fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
					if err := migration.Apply(conn); err != nil {
						return err
					}
					log.Info("migrations applied", zap.String("dialect", conn.Dialector.Name()))
					return nil
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Stop(ctx)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Maximum time to wait for migrations")

	return cmd
}
