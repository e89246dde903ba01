package fetch

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached result of an upstream fetch. Exactly one of Record, Profile or Err is set.
type Entry struct {
	Updated time.Time
	Record  *RawRecord
	Profile *RawProfile
	// errors are flattened to strings so entries can be serialized
	Err      string
	NotFound bool
}

type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
}

type memoryItem struct {
	entry   *Entry
	expires time.Time
}

// In-process LRU [Cache].
type MemoryCache struct {
	lru *expirable.LRU[string, memoryItem]
}

var _ Cache = (*MemoryCache)(nil)

// `maxTTL` bounds every entry (zero for unlimited); shorter per-entry TTLs passed to Set are also honored.
func NewMemoryCache(capacity int, maxTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryItem](capacity, nil, maxTTL),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*Entry, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return item.entry, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	item := memoryItem{entry: e}
	if ttl > 0 {
		item.expires = time.Now().Add(ttl)
	}
	c.lru.Add(key, item)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
