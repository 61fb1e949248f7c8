package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOpts configures the client behind the per-IP rate limiter.
// Operation timeouts stay short since the limiter fails open on errors.
type RedisOpts struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int           // default 10 per CPU (go-redis)
	DialTimeout time.Duration // default 2s
	OpTimeout   time.Duration // read and write, default 100ms
	ClientName  string        // default "customers-api"
}

func (o RedisOpts) options() *redis.Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 2 * time.Second
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 100 * time.Millisecond
	}
	if o.ClientName == "" {
		o.ClientName = "customers-api"
	}
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		ClientName:   o.ClientName,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.OpTimeout,
		WriteTimeout: o.OpTimeout,
	}
}

// NewRedisClient connects and pings the rate limiter store.
func NewRedisClient(opts RedisOpts) (*redis.Client, error) {
	ro := opts.options()
	rdb := redis.NewClient(ro)

	ctx, cancel := context.WithTimeout(context.Background(), ro.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", ro.Addr, err)
	}
	return rdb, nil
}
