package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/customers-api/internal/config"
	"github.com/jmehdipour/customers-api/internal/db"
	"github.com/jmehdipour/customers-api/internal/events"
	"github.com/jmehdipour/customers-api/internal/kafka"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// backend holds the opened stores; close releases them in reverse order.
type backend struct {
	customers repository.CustomersRepository
	mysql     *sqlx.DB
	mongo     *mongo.Database
	closers   []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func poolOpts(c config.DatabaseConfig) db.PoolOpts {
	return db.PoolOpts{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

// openBackend connects the customer store selected by storage.backend.
func openBackend(cfg config.Config) (*backend, error) {
	b := &backend{}
	switch cfg.Storage.Backend {
	case config.BackendMySQL:
		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, poolOpts(cfg.MySQL))
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		b.mysql = dbx
		b.customers = repository.NewMySQLCustomersRepository(dbx)
		b.closers = append(b.closers, func() { _ = dbx.Close() })
	case config.BackendMongo:
		mdb, err := db.NewMongoDatabase(db.MongoOpts{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			PingTimeout:    cfg.Mongo.PingTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		b.mongo = mdb
		b.customers = repository.NewMongoCustomersRepository(mdb, cfg.Mongo.Collection)
		b.closers = append(b.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mdb.Client().Disconnect(ctx)
		})
	default:
		b.customers = repository.NewMemoryCustomersRepository()
	}
	logger.Log.Info("customer store ready", zap.String("backend", cfg.Storage.Backend))
	return b, nil
}

func openClickHouse(cfg config.Config) (*sqlx.DB, error) {
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, poolOpts(cfg.ClickHouse))
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	return chDB, nil
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return events.NopPublisher{}, nil
	}
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = events.DefaultTopic
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        topic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
		RequiredAcks: cfg.Kafka.RequiredAcks,
	})
	if err != nil {
		return nil, err
	}
	return events.NewKafkaPublisher(producer, events.BreakerOpts{
		FailThreshold: cfg.Kafka.Breaker.FailThreshold,
		OpenFor:       time.Duration(cfg.Kafka.Breaker.OpenForMs) * time.Millisecond,
	}, cfg.Kafka.WriteTimeout), nil
}
