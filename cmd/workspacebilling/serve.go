package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/mewayz/workspacebilling/internal/clock"
	"github.com/mewayz/workspacebilling/internal/config"
	"github.com/mewayz/workspacebilling/internal/migration"
	"github.com/mewayz/workspacebilling/internal/observability"
	"github.com/mewayz/workspacebilling/internal/server"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				migration.Module,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
