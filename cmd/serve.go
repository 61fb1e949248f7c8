package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/customers-api/internal/db"
	httpSrv "github.com/jmehdipour/customers-api/internal/http"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/jmehdipour/customers-api/internal/service/customers"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.close()

		var history repository.EventsRepository
		if cfg.ClickHouse.Enabled {
			chDB, err := openClickHouse(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = chDB.Close() }()
			history = repository.NewCHEventsRepository(chDB)
		}

		var redisClient *redis.Client
		if cfg.Redis.Enabled {
			redisClient, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				PoolSize:    cfg.Redis.PoolSize,
				DialTimeout: cfg.Redis.DialTimeout,
				OpTimeout:   cfg.Redis.OpTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
		}

		pub, err := openPublisher(cfg)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer func() { _ = pub.Close() }()

		svc := customers.New(b.customers, history, pub)
		server := httpSrv.NewServer(cfg, svc, redisClient)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}
