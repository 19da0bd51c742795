package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisConfigDefaults(t *testing.T) {
	opts := RedisConfig{}.withDefaults().options()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 30*time.Second, opts.PoolTimeout)

	cfg := RedisConfig{Host: "redis", Port: 6380, PoolSize: 4, MinIdleConns: 9}.withDefaults()
	assert.Equal(t, "redis:6380", cfg.options().Addr)
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.Equal(t, "marketlens", cfg.Prefix)
}
