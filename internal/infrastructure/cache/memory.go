package cache

import (
	"strings"
	"time"

	"zone-coverage-backend/pkg/cache"

	gocache "github.com/patrickmn/go-cache"
)

type memoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a new in-memory cache service
// defaultExpiration: default TTL for items
// cleanupInterval: how often to scan for expired items
func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) cache.CacheService {
	return &memoryCache{
		store: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *memoryCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *memoryCache) Set(key string, value interface{}, duration time.Duration) {
	c.store.Set(key, value, duration)
}

func (c *memoryCache) Incr(key string) int64 {
	for {
		if n, err := c.store.IncrementInt64(key, 1); err == nil {
			return n
		}
		if v, found := c.store.Get(key); found {
			if _, ok := v.(int64); !ok {
				c.store.Set(key, int64(1), gocache.NoExpiration)
				return 1
			}
			continue
		}
		// Add fails when another caller created the counter first; retry the increment.
		if err := c.store.Add(key, int64(1), gocache.NoExpiration); err == nil {
			return 1
		}
	}
}

func (c *memoryCache) Delete(key string) {
	c.store.Delete(key)
}

// DeletePrefix walks a copy of the live items, so it is O(n) in cache size.
func (c *memoryCache) DeletePrefix(prefix string) {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}

func (c *memoryCache) Flush() {
	c.store.Flush()
}
