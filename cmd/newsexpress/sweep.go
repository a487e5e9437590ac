package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/newsexpress/internal/clock"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/smallbiznis/newsexpress/internal/observability"
	"github.com/smallbiznis/newsexpress/internal/observability/push"
	"github.com/smallbiznis/newsexpress/internal/scheduler"
	"github.com/smallbiznis/newsexpress/internal/server"
	"github.com/smallbiznis/newsexpress/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run every enabled sweep job once and push its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg   config.Config
				log   *zap.Logger
				sched *scheduler.Scheduler
			)
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				server.Services,
				fx.Provide(scheduler.ProvideConfig),
				fx.Provide(scheduler.New),
				fx.Populate(&cfg, &log, &sched),
			)
			return runOnce(cmd.Context(), app, func(ctx context.Context) error {
				runErr := sched.RunOnce(ctx)

				if pusher := push.New(cfg, log); pusher != nil {
					if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
						log.Warn("sweep metrics push failed", zap.Error(err))
					}
				}
				return runErr
			})
		},
	}
}
