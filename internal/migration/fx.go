package migration

import (
	"context"

	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/config"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, log *zap.Logger, authSvc authdomain.Service, employeeSvc employeedomain.Service) error {
		log = log.Named("migration")

		if cfg.DBType != "postgres" {
			log.Warn("schema migrations only run against postgres", zap.String("db_type", cfg.DBType))
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			result, err := RunMigrations(sqlDB)
			if err != nil {
				return err
			}
			log.Info("schema is current", zap.Uint("version", result.Version), zap.Bool("applied", result.Applied))
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureManager(ctx, authSvc, employeeSvc, cfg.Bootstrap, log)
			},
		})
		return nil
	}),
)
