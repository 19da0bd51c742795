package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "MARKETLENS"

type Config struct {
	Environment string           `yaml:"environment"`
	ServiceName string           `yaml:"service_name"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     LoggingConfig    `yaml:"logging"`
	Store       StoreConfig      `yaml:"store"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Source      SourceConfig     `yaml:"source"`
	Collector   CollectorConfig  `yaml:"collector"`
	Cache       CacheConfig      `yaml:"cache"`
	Predictor   PredictorConfig  `yaml:"predictor"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	// Collect aggregates error and warning logs and ships them to Kafka.
	Collect struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic"`
		Interval  time.Duration `yaml:"interval"`
		Threshold int           `yaml:"threshold"`
	} `yaml:"collect"`
}

type StoreConfig struct {
	Type       string `yaml:"type"` // sqlite or clickhouse
	SQLitePath string `yaml:"sqlite_path"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	PoolTimeout  time.Duration `yaml:"pool_timeout"`
	Prefix       string        `yaml:"prefix"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"` // refresh events
	RequiredAcks int      `yaml:"required_acks"`
	Compression  string   `yaml:"compression"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		Linger       time.Duration `yaml:"linger"`
		BatchBytes   int           `yaml:"batch_bytes"`
		BatchSize    int           `yaml:"batch_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id"`
		Workers    int           `yaml:"workers"`
		BufferSize int           `yaml:"buffer_size"`
		RetryMax   int           `yaml:"retry_max"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes"`
		MaxBytes   int           `yaml:"max_bytes"`
	} `yaml:"consumer"`
}

type SourceConfig struct {
	Type       string        `yaml:"type"` // yfinance or chart
	BaseURL    string        `yaml:"base_url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Budget     time.Duration `yaml:"budget"`
}

type CollectorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Schedule      string        `yaml:"schedule"` // cron with seconds field
	Period        string        `yaml:"period"`
	RunOnStart    bool          `yaml:"run_on_start"`
	AllowFallback bool          `yaml:"allow_fallback"`
	Pause         time.Duration `yaml:"pause"`
	Symbols       []string      `yaml:"symbols"` // empty means every tracked company
	Queue         struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

type CacheConfig struct {
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	Mirror          bool          `yaml:"mirror"` // mirror entries to Redis
}

type PredictorConfig struct {
	HistoryDays int `yaml:"history_days"`
}

type RateLimitConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Capacity     float64 `yaml:"capacity"`
	RefillPerSec float64 `yaml:"refill_per_sec"`
}

// Default returns a configuration that runs locally with no external services.
func Default() *Config {
	c := &Config{
		Environment: "development",
		ServiceName: "marketlens",
	}
	c.Server = ServerConfig{
		Port:            8000,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowOrigins:    []string{"*"},
	}
	c.Metrics = MetricsConfig{Enabled: true, Path: "/metrics"}
	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Logging.Output = "stdout"
	c.Logging.Collect.Topic = "marketlens.logs"
	c.Logging.Collect.Interval = 30 * time.Second
	c.Logging.Collect.Threshold = 100
	c.Store = StoreConfig{Type: "sqlite", SQLitePath: "marketlens.db"}
	c.ClickHouse = ClickHouseConfig{
		Host:        "localhost",
		Port:        9000,
		Database:    "marketlens",
		User:        "default",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
	}
	c.Redis = RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  30 * time.Second,
		Prefix:       "marketlens",
	}
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.Topic = "marketlens.refresh"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.BatchBytes = 1 << 20
	c.Kafka.Producer.Linger = 50 * time.Millisecond
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "marketlens"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.BufferSize = 64
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 50 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 2 * time.Second
	c.Kafka.Consumer.MinBytes = 1
	c.Kafka.Consumer.MaxBytes = 10e6
	c.Source = SourceConfig{
		Type:       "yfinance",
		BaseURL:    "https://query1.finance.yahoo.com",
		UserAgent:  "Mozilla/5.0 (compatible; MarketLens/1.0)",
		Timeout:    10 * time.Second,
		Attempts:   2,
		RetryDelay: time.Second,
		Budget:     20 * time.Second,
	}
	c.Collector.Schedule = "0 30 18 * * 1-5"
	c.Collector.Period = "1y"
	c.Collector.AllowFallback = true
	c.Collector.Pause = time.Second
	c.Collector.Queue.Workers = 1
	c.Collector.Queue.RetryLimit = 2
	c.Collector.Queue.RetryDelay = 30 * time.Second
	c.Cache = CacheConfig{JanitorInterval: time.Minute}
	c.Predictor = PredictorConfig{HistoryDays: 100}
	c.RateLimit = RateLimitConfig{Enabled: true, Capacity: 60, RefillPerSec: 10}
	return c
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env when present, then the YAML file (or the defaults
// when path is empty), then applies MARKETLENS_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	var ov overrides
	if err := envconfig.Process(EnvPrefix, &ov); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	ov.apply(c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Store.Type {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for sqlite store")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for clickhouse store")
		}
	default:
		return fmt.Errorf("store.type must be 'sqlite' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if c.Source.Type != "yfinance" && c.Source.Type != "chart" {
		return fmt.Errorf("source.type must be 'yfinance' or 'chart', got '%s'", c.Source.Type)
	}
	if c.Source.Attempts < 1 {
		return fmt.Errorf("source.attempts must be at least 1")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Collector.Enabled && c.Collector.Schedule == "" {
		return fmt.Errorf("collector.schedule is required when the collector is enabled")
	}
	if (c.Cache.Mirror || c.Collector.Queue.Enabled) && !c.Redis.Enabled {
		return fmt.Errorf("redis must be enabled for the cache mirror or the collect queue")
	}
	if c.Predictor.HistoryDays < 1 {
		return fmt.Errorf("predictor.history_days must be positive")
	}
	return nil
}
