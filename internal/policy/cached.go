package policy

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "policy:v1:"

// Cached decorates another provider with a Redis read-through cache. Policy
// rows change rarely and are read on every grant, so a short TTL removes
// them from the hot path. Cache failures fall through to the inner provider.
type Cached struct {
	next   Provider
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with a Redis cache using the given TTL.
func NewCached(next Provider, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the cached value for key, filling the cache on a miss.
func (c *Cached) Get(ctx context.Context, key Key) (int64, error) {
	cacheKey := cachePrefix + string(key)

	raw, err := c.cache.Get(ctx, cacheKey).Result()
	if err == nil {
		if v, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			return v, nil
		}
		c.logger.Warn("discarding malformed cached policy value", slog.String("key", string(key)), slog.String("raw", raw))
	} else if err != redis.Nil {
		c.logger.Warn("policy cache lookup failed", slog.String("key", string(key)), slog.Any("error", err))
	}

	value, err := c.next.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, cacheKey, strconv.FormatInt(value, 10), c.ttl).Err(); err != nil {
		c.logger.Warn("policy cache fill failed", slog.String("key", string(key)), slog.Any("error", err))
	}

	return value, nil
}
