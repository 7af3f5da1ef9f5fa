package cache

import (
	"context"
	"strings"
	"time"

	"github.com/lexledger/lexledger/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

const (
	// ExpiryDefaultInMemory is used when the configuration does not set a TTL
	ExpiryDefaultInMemory = 5 * time.Minute
	// DefaultCleanupInterval is how often expired items are removed from the cache
	DefaultCleanupInterval = 10 * time.Minute
)

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// NewInMemoryCache creates a cache honouring cache.enabled and cache.ttl_seconds
func NewInMemoryCache(cfg *config.Configuration) Cache {
	ttl := ExpiryDefaultInMemory
	if cfg.Cache.TTLSeconds > 0 {
		ttl = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}

	return &InMemoryCache{
		cache:   goCache.New(ttl, DefaultCleanupInterval),
		enabled: cfg.Cache.Enabled,
	}
}

// NewInMemoryStore creates an always-enabled cache whose entries expire after ttl unless refreshed
func NewInMemoryStore(ttl time.Duration) Cache {
	cleanup := DefaultCleanupInterval
	if ttl < cleanup {
		cleanup = ttl
	}
	return &InMemoryCache{
		cache:   goCache.New(ttl, cleanup),
		enabled: true,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

// Set adds a value to the cache
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if !c.enabled {
		return
	}
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	if !c.enabled {
		return
	}
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	if !c.enabled {
		return
	}
	c.cache.Flush()
}
