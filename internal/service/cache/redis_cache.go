package cache

import (
	pkgcache "MarketLens/pkg/cache"
	"MarketLens/pkg/config"
)

// NewRedisMirror connects the Redis mirror described by cfg.
func NewRedisMirror(cfg config.RedisConfig) (*pkgcache.RedisCache, error) {
	return pkgcache.NewRedisCache(pkgcache.RedisConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,
		Prefix:       cfg.Prefix,
	})
}

var _ Mirror = (*pkgcache.RedisCache)(nil)
