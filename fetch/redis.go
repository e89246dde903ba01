package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// prefix for all the Redis keys this cache uses
var redisCachePrefix = "threadview/"

// Redis-backed [Cache], with an in-process TinyLFU for hot keys (provided by the cache library).
//
// NOTE: cached errors lose their type; only the message and the not-found flag survive.
type RedisCache struct {
	cache *cache.Cache
}

var _ Cache = (*RedisCache)(nil)

// `redisURL` contains all the redis connection config options. `lruSize` and `localTTL` configure the in-process layer.
func NewRedisCache(ctx context.Context, redisURL string, lruSize int, localTTL time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not configure redis record cache: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis record cache: %w", err)
	}
	return &RedisCache{
		cache: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(lruSize, localTTL),
		}),
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	var e Entry
	if err := c.cache.Get(ctx, redisCachePrefix+key, &e); err != nil {
		if err != cache.ErrCacheMiss {
			slog.Warn("record cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return &e, true
}

func (c *RedisCache) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	return c.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCachePrefix + key,
		Value: e,
		TTL:   ttl,
	})
}
