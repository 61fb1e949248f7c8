package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/customers-api/internal/db"
	"github.com/jmehdipour/customers-api/internal/events"
	"github.com/jmehdipour/customers-api/internal/kafka"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/metrics"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/jmehdipour/customers-api/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAuditCmd(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Copy customer events from Kafka into ClickHouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled || !cfg.ClickHouse.Enabled {
				return errors.New("audit worker needs kafka.enabled and clickhouse.enabled")
			}

			metrics.MustRegister(prometheus.DefaultRegisterer)

			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOpts{
				MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
				MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
				ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
				PingTimeout:     cfg.ClickHouse.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer chDB.Close()

			topic := cfg.Kafka.Topic
			if topic == "" {
				topic = events.DefaultTopic
			}
			groupID := cfg.Kafka.GroupID
			if groupID == "" {
				groupID = "customers-audit"
			}

			consumer := kafka.NewConsumer(kafka.Config{
				Brokers:        cfg.Kafka.Brokers,
				Topic:          topic,
				GroupID:        groupID,
				MinBytes:       cfg.Kafka.MinBytes,
				MaxBytes:       cfg.Kafka.MaxBytes,
				CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
			})
			defer consumer.Close()

			w := worker.NewAudit(consumer, repository.NewCHEventsRepository(chDB))
			if cfg.Audit.BatchSize > 0 {
				w.BatchSize = cfg.Audit.BatchSize
			}
			if cfg.Audit.BatchWait > 0 {
				w.BatchWait = cfg.Audit.BatchWait
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Log.Info("audit worker started",
				zap.String("topic", topic),
				zap.String("group", groupID),
				zap.Int("batch_size", w.BatchSize),
				zap.Duration("batch_wait", w.BatchWait),
			)

			return w.Run(ctx)
		},
	}
}
