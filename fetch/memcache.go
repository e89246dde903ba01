package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcached rejects keys longer than this
const memcacheMaxKey = 250

// memcached treats expirations over 30 days as unix timestamps
const memcacheMaxExpiry = 30*24*60*60 - 60

// memcached-backed [Cache]. Entries are stored as JSON.
type MemcacheCache struct {
	mcd *memcache.Client
}

var _ Cache = (*MemcacheCache)(nil)

func NewMemcacheCache(servers ...string) *MemcacheCache {
	return &MemcacheCache{
		mcd: memcache.New(servers...),
	}
}

func memcacheKey(key string) string {
	k := redisCachePrefix + key
	if len(k) <= memcacheMaxKey {
		return k
	}
	sum := sha256.Sum256([]byte(k))
	return redisCachePrefix + "h/" + hex.EncodeToString(sum[:])
}

func memcacheExpiry(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl.Seconds())
	if secs > memcacheMaxExpiry {
		return memcacheMaxExpiry
	}
	if secs < 1 {
		return 1
	}
	return int32(secs)
}

func (c *MemcacheCache) Get(ctx context.Context, key string) (*Entry, bool) {
	item, err := c.mcd.Get(memcacheKey(key))
	if err != nil || item == nil {
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			slog.Warn("record cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(item.Value, &e); err != nil {
		slog.Warn("invalid record cache entry", "key", key, "err", err)
		return nil, false
	}
	return &e, true
}

func (c *MemcacheCache) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	blob, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.mcd.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      blob,
		Expiration: memcacheExpiry(ttl),
	})
}
