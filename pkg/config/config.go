package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SignalEngine/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" env:"APP_ENV" default:"development" validate:"oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" env:"SERVER_PORT" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
			RPS     float64 `yaml:"rps" default:"50" validate:"gt=0"`
			Burst   int     `yaml:"burst" default:"100" validate:"gte=1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`
	Engine struct {
		CatalogPath    string        `yaml:"catalog_path" env:"ENGINE_CATALOG"`
		DefaultFamily  string        `yaml:"default_family" env:"ENGINE_DEFAULT_FAMILY" default:"camarilla" validate:"required"`
		SnapshotTTL    time.Duration `yaml:"snapshot_ttl" default:"24h" validate:"gt=0"`
		BatchWorkers   int           `yaml:"batch_workers" default:"8" validate:"gte=1,lte=256"`
		PersistMode    string        `yaml:"persist_mode" env:"ENGINE_PERSIST_MODE" default:"sync" validate:"oneof=sync async queue"`
		PersistTimeout time.Duration `yaml:"persist_timeout" default:"10s"`
		HistoryWindow  time.Duration `yaml:"history_window" default:"24h"`
	} `yaml:"engine"`
	Queue struct {
		Workers      int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit   int           `yaml:"retry_limit" default:"5" validate:"gte=0"`
		RetryBase    time.Duration `yaml:"retry_base" default:"1s"`
		RetryMax     time.Duration `yaml:"retry_max" default:"5m"`
		PollInterval time.Duration `yaml:"poll_interval" default:"1s"`
		KeyPrefix    string        `yaml:"key_prefix" default:"signals:queue"`
	} `yaml:"queue"`
	Cache struct {
		Mode            string        `yaml:"mode" env:"CACHE_MODE" default:"memory" validate:"oneof=memory redis layered"`
		MemoryMaxSize   int           `yaml:"memory_max_size" default:"10000" validate:"gte=1"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
		Redis           struct {
			Host         string        `yaml:"host" env:"REDIS_HOST" default:"localhost"`
			Port         int           `yaml:"port" env:"REDIS_PORT" default:"6379" validate:"gte=1,lte=65535"`
			Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
			DB           int           `yaml:"db" env:"REDIS_DB" validate:"gte=0"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
			Prefix       string        `yaml:"prefix" default:"signals"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled" env:"KAFKA_ENABLED"`
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:"," validate:"required_if=Enabled true"`
		SnapshotsTopic string   `yaml:"snapshots_topic" env:"KAFKA_SNAPSHOTS_TOPIC" default:"indicator-snapshots"`
		ResultsTopic   string   `yaml:"results_topic" env:"KAFKA_RESULTS_TOPIC" default:"signal-results"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression    string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" env:"KAFKA_GROUP_ID" default:"signal-engine"`
			Workers    int           `yaml:"workers" default:"4" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"256" validate:"gte=1"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"indicator-snapshots-dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" env:"CLICKHOUSE_ENABLED"`
		Host             string        `yaml:"host" env:"CLICKHOUSE_HOST" default:"localhost"`
		Port             int           `yaml:"port" env:"CLICKHOUSE_PORT" default:"9000" validate:"gte=1,lte=65535"`
		Database         string        `yaml:"database" env:"CLICKHOUSE_DATABASE" default:"signals"`
		User             string        `yaml:"user" env:"CLICKHOUSE_USER" default:"default"`
		Password         string        `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(b, false)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(b, true)
}

func parse(b []byte, withEnv bool) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if withEnv {
		if err := env.Parse(&c); err != nil {
			return nil, fmt.Errorf("config env: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && c.Kafka.SnapshotsTopic == c.Kafka.ResultsTopic {
		return fmt.Errorf("kafka.snapshots_topic and kafka.results_topic must differ")
	}
	if c.UsesRedis() && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required for cache mode %q", c.Cache.Mode)
	}
	if c.Engine.PersistMode == "queue" && c.Cache.Mode == "memory" {
		return fmt.Errorf("engine.persist_mode queue needs cache mode redis or layered")
	}
	return nil
}

// UsesRedis reports whether the cache mode needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Mode == "redis" || c.Cache.Mode == "layered"
}

// RedisAddr is host:port of the configured Redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Cache.Redis.Host, c.Cache.Redis.Port)
}
