package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "workspacebilling",
		Short: "Workspace bundle subscriptions and usage limits",
		Long:  `workspacebilling serves the bundle subscription, feature access and usage limit API for workspaces.`,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newCatalogCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
