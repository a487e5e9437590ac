package main

import (
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/migration"
	"github.com/smallbiznis/newsexpress/internal/observability"
	"github.com/smallbiznis/newsexpress/internal/scheduler"
	"github.com/smallbiznis/newsexpress/internal/server"
	"github.com/smallbiznis/newsexpress/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				server.Services,
				migration.Module,
				scheduler.Module,
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
