package main

import (
	"context"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gradii "github.com/Gradiiai/gradii-sub007"
	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/pkg/database"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

func migrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrates database to the latest version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			pool, closePool := getPostgres(ctx, cfg)
			defer closePool()

			db := database.SQLDB(pool)
			defer db.Close()

			goose.SetBaseFS(gradii.Migrations)
			if err := goose.SetDialect("postgres"); err != nil {
				logger.Fatal(ctx, "could not set goose dialect to postgres", zap.Error(err))
			}
			if err := goose.UpContext(ctx, db, "migrations"); err != nil {
				logger.Fatal(ctx, "could not migrate database", zap.Error(err))
			}

			// river keeps its own schema
			migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
			if err != nil {
				logger.Fatal(ctx, "could not create river migrator", zap.Error(err))
			}
			res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
			if err != nil {
				logger.Fatal(ctx, "could not migrate river schema", zap.Error(err))
			}

			logger.Info(ctx, "database migrated", zap.Int("river_versions_applied", len(res.Versions)))
		},
	}
}
