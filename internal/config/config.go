package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

const (
	BackendMySQL  = "mysql"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// ---- Root ----

type Config struct {
	LogLevel   string          `mapstructure:"log_level"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	Storage    StorageConfig   `mapstructure:"storage"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	Mongo      MongoConfig     `mapstructure:"mongo"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Audit      AuditConfig     `mapstructure:"audit"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
}

type KafkaConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval int           `mapstructure:"commit_interval_ms"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequiredAcks   string        `mapstructure:"required_acks"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type AuditConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (CUSTOMERS_*).
// Nested keys map to env names with dots replaced by underscores, e.g. CUSTOMERS_STORAGE_BACKEND.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		// a missing file keeps the defaults
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("merge %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("CUSTOMERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("config: mysql.dsn is required for the mysql backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("config: mongo.uri is required for the mongo backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage.backend %q (want mysql, mongo or memory)", c.Storage.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must not be empty when kafka is enabled")
	}
	switch strings.ToLower(c.Kafka.RequiredAcks) {
	case "", "one", "all", "none":
	default:
		return fmt.Errorf("config: unknown kafka.required_acks %q (want one, all or none)", c.Kafka.RequiredAcks)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("config: rate_limit.rps must not be negative")
	}
	return nil
}
