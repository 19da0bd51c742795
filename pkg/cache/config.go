package cache

import (
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the shared Redis. Zero fields take defaults.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	// Prefix namespaces every key this process writes.
	Prefix string
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 || c.MinIdleConns > c.PoolSize {
		c.MinIdleConns = c.PoolSize / 2
	}
	if c.PoolTimeout <= 0 {
		c.PoolTimeout = 30 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "marketlens"
	}
	return c
}

func (c RedisConfig) options() *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		PoolTimeout:  c.PoolTimeout,
	}
}
