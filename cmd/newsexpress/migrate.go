package main

import (
	"context"
	"time"

	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/migration"
	"github.com/smallbiznis/newsexpress/internal/observability"
	"github.com/smallbiznis/newsexpress/internal/server"
	"github.com/smallbiznis/newsexpress/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const oneShotTimeout = 2 * time.Minute

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and create the bootstrap manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				server.Services,
				migration.Module,
			)
			return runOnce(cmd.Context(), app, nil)
		},
	}
}

// runOnce starts app, calls fn and stops app again.
func runOnce(parent context.Context, app *fx.App, fn func(ctx context.Context) error) error {
	if err := app.Err(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	startCtx, cancel := context.WithTimeout(parent, oneShotTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	var runErr error
	if fn != nil {
		runErr = fn(startCtx)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
