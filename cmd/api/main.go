// Package main is the Gradii API binary: the HTTP server with its background
// workers, database migrations and super admin bootstrap.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/config"
	_ "github.com/Gradiiai/gradii-sub007/docs" // swagger spec
	"github.com/Gradiiai/gradii-sub007/pkg/database"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

// getPostgres opens the pool and returns it with its cleanup.
func getPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func()) {
	pool, err := database.NewPostgresConnection(ctx, cfg.Database.URL, database.Options{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		SimpleProtocol:  cfg.Database.SimpleProtocol,
	})
	if err != nil {
		logger.Fatal(ctx, "could not connect to database", zap.Error(err))
	}

	return pool, func() {
		logger.Info(ctx, "closing postgres pool...")
		pool.Close()
	}
}

// @title           Gradii API
// @version         1.0
// @description     Multi-tenant AI recruiting and interview platform.
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "api",
		Short: "Gradii recruiting API",
	}
	rootCmd.AddCommand(
		serveCommand(cfg),
		migrateCommand(cfg),
		superAdminCommand(cfg),
	)

	err = rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
