package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketLens/internal/domain/repository"
	pkgcache "MarketLens/pkg/cache"
	applogger "MarketLens/pkg/logger"
)

type entry struct {
	op  string
	v   any
	exp time.Time
}

// ResponseCache memoizes operation results in process for a per-entry TTL.
// Entries are addressed by a digest of (op, args, kwargs) and remember their
// op so they can be cleared by family.
type ResponseCache struct {
	mu      sync.RWMutex
	m       map[string]entry
	now     func() time.Time
	mirror  Mirror
	metrics repository.Metrics
	logger  *applogger.Logger
}

type Option func(*ResponseCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// WithMirror writes every entry through to a shared cache.
func WithMirror(m Mirror) Option {
	return func(c *ResponseCache) { c.mirror = m }
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *ResponseCache) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *ResponseCache) { c.logger = l }
}

func NewResponseCache(opts ...Option) *ResponseCache {
	c := &ResponseCache{m: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = applogger.Nop()
	}
	return c
}

// Key is the md5 hex digest of the canonical JSON form of the call.
// Map keys marshal in sorted order, so kwargs order never matters.
func Key(op string, args []any, kwargs map[string]any) string {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	b, err := json.Marshal(struct {
		Prefix string         `json:"prefix"`
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}{op, args, kwargs})
	if err != nil {
		// unmarshalable arguments still get a stable key
		b = []byte(fmt.Sprintf("%s|%v|%v", op, args, kwargs))
	}
	return pkgcache.HashKey(string(b))
}

// Get returns the live value stored for the call. An expired entry is
// removed and reported as a miss.
func (c *ResponseCache) Get(op string, args []any, kwargs map[string]any) (any, bool) {
	key := Key(op, args, kwargs)
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if ok && !c.now().Before(e.exp) {
		c.mu.Lock()
		if cur, still := c.m[key]; still && !c.now().Before(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		ok = false
	}
	c.recordLookup(op, ok)
	if !ok {
		return nil, false
	}
	return e.v, true
}

// Set stores value for the call, replacing any previous entry.
func (c *ResponseCache) Set(op string, value any, ttl time.Duration, args []any, kwargs map[string]any) {
	c.mu.Lock()
	c.m[Key(op, args, kwargs)] = entry{op: op, v: value, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Clear drops every entry whose op starts with prefix, or everything when
// prefix is empty. The mirror, if any, is cleared the same way.
func (c *ResponseCache) Clear(ctx context.Context, prefix string) int {
	c.mu.Lock()
	var n int
	if prefix == "" {
		n = len(c.m)
		c.m = make(map[string]entry)
	} else {
		for k, e := range c.m {
			if strings.HasPrefix(e.op, prefix) {
				delete(c.m, k)
				n++
			}
		}
	}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.DeleteByPattern(ctx, pkgcache.BuildPattern(mirrorNamespace, prefix)); err != nil {
			c.logger.Warn("cache mirror clear failed", applogger.String("prefix", prefix), applogger.Error(err))
		}
	}
	return n
}

// CleanupExpired removes expired entries and returns how many it removed.
func (c *ResponseCache) CleanupExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.m {
		if !now.Before(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Len is the number of stored entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// StartJanitor runs CleanupExpired every interval until ctx ends.
func (c *ResponseCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := c.CleanupExpired(); n > 0 {
					c.logger.Debug("cache janitor evicted entries", applogger.Int("count", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *ResponseCache) recordLookup(op string, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(op, hit)
	}
}

// mirrorNamespace keeps mirrored responses apart from the queue and lock
// keys sharing the Redis prefix, so Clear never reaches them.
const mirrorNamespace = "rc"

func mirrorKey(op, key string) string { return mirrorNamespace + ":" + op + ":" + key }

// GetOrLoad returns the cached result of op for the given arguments, asking
// the mirror and then load on a miss. A successful load is stored in both
// levels. Concurrent misses may load twice; the last write wins.
func GetOrLoad[T any](ctx context.Context, c *ResponseCache, op string, ttl time.Duration, args []any, kwargs map[string]any, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(op, args, kwargs); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	key := Key(op, args, kwargs)
	if c.mirror != nil {
		var remote T
		err := c.mirror.Get(ctx, mirrorKey(op, key), &remote)
		switch {
		case err == nil:
			c.Set(op, remote, ttl, args, kwargs)
			return remote, nil
		case !errors.Is(err, pkgcache.ErrCacheMiss):
			c.logger.Warn("cache mirror read failed", applogger.String("op", op), applogger.Error(err))
		}
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(op, v, ttl, args, kwargs)
	if c.mirror != nil {
		if err := c.mirror.Set(ctx, mirrorKey(op, key), v, ttl); err != nil {
			c.logger.Warn("cache mirror write failed", applogger.String("op", op), applogger.Error(err))
		}
	}
	return v, nil
}
