package config

import "time"

// overrides mirrors the settings operators usually change per deployment.
// Unset variables leave the pointer nil and the loaded value untouched.
type overrides struct {
	Environment  *string        `envconfig:"ENVIRONMENT"`
	Port         *int           `envconfig:"PORT"`
	LogLevel     *string        `envconfig:"LOG_LEVEL"`
	LogFormat    *string        `envconfig:"LOG_FORMAT"`
	StoreType    *string        `envconfig:"STORE"`
	SQLitePath   *string        `envconfig:"SQLITE_PATH"`
	CHHost       *string        `envconfig:"CLICKHOUSE_HOST"`
	CHPassword   *string        `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisEnabled *bool          `envconfig:"REDIS_ENABLED"`
	RedisHost    *string        `envconfig:"REDIS_HOST"`
	RedisPass    *string        `envconfig:"REDIS_PASSWORD"`
	KafkaEnabled *bool          `envconfig:"KAFKA_ENABLED"`
	KafkaBrokers []string       `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   *string        `envconfig:"KAFKA_TOPIC"`
	SourceType   *string        `envconfig:"SOURCE"`
	SourceURL    *string        `envconfig:"SOURCE_BASE_URL"`
	Timeout      *time.Duration `envconfig:"SOURCE_TIMEOUT"`
	Schedule     *string        `envconfig:"COLLECT_SCHEDULE"`
	Collect      *bool          `envconfig:"COLLECT_ENABLED"`
	Fallback     *bool          `envconfig:"ALLOW_FALLBACK"`
	Symbols      []string       `envconfig:"SYMBOLS"`
}

func (o overrides) apply(c *Config) {
	setString(&c.Environment, o.Environment)
	if o.Port != nil {
		c.Server.Port = *o.Port
	}
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Logging.Format, o.LogFormat)
	setString(&c.Store.Type, o.StoreType)
	setString(&c.Store.SQLitePath, o.SQLitePath)
	setString(&c.ClickHouse.Host, o.CHHost)
	setString(&c.ClickHouse.Password, o.CHPassword)
	setBool(&c.Redis.Enabled, o.RedisEnabled)
	setString(&c.Redis.Host, o.RedisHost)
	setString(&c.Redis.Password, o.RedisPass)
	setBool(&c.Kafka.Enabled, o.KafkaEnabled)
	if len(o.KafkaBrokers) > 0 {
		c.Kafka.Brokers = o.KafkaBrokers
	}
	setString(&c.Kafka.Topic, o.KafkaTopic)
	setString(&c.Source.Type, o.SourceType)
	setString(&c.Source.BaseURL, o.SourceURL)
	if o.Timeout != nil {
		c.Source.Timeout = *o.Timeout
	}
	setString(&c.Collector.Schedule, o.Schedule)
	setBool(&c.Collector.Enabled, o.Collect)
	setBool(&c.Collector.AllowFallback, o.Fallback)
	if len(o.Symbols) > 0 {
		c.Collector.Symbols = o.Symbols
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
