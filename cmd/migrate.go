package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/customers-api/internal/config"
	"github.com/jmehdipour/customers-api/internal/db"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes for the configured stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.close()

		switch cfg.Storage.Backend {
		case config.BackendMySQL:
			applied, err := db.Migrate(ctx, b.mysql, db.DialectMySQL)
			if err != nil {
				return fmt.Errorf("mysql migrate: %w", err)
			}
			logger.Log.Info("mysql migrated", zap.Strings("files", applied))
		case config.BackendMongo:
			names, err := repository.NewMongoCustomersRepository(b.mongo, cfg.Mongo.Collection).EnsureIndexes(ctx)
			if err != nil {
				return fmt.Errorf("mongo indexes: %w", err)
			}
			logger.Log.Info("mongo indexes ensured", zap.Strings("indexes", names))
		default:
			logger.Log.Info("memory backend needs no migration")
		}

		if cfg.ClickHouse.Enabled {
			chDB, err := openClickHouse(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = chDB.Close() }()
			applied, err := db.Migrate(ctx, chDB, db.DialectClickHouse)
			if err != nil {
				return fmt.Errorf("clickhouse migrate: %w", err)
			}
			logger.Log.Info("clickhouse migrated", zap.Strings("files", applied))
		}

		return nil
	},
}
