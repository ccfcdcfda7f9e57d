// Package cache keeps short-lived results of aggregate queries.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/yukikurage/labelit-api/internal/metrics"
)

// Cache is a TTL cache cleared wholesale whenever the underlying data changes.
type Cache struct {
	store *ristretto.Cache[string, any]
	ttl   time.Duration
	name  string
}

// New creates a cache whose entries expire after ttl.
func New(name string, ttl time.Duration) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", name, err)
	}
	return &Cache{store: store, ttl: ttl, name: name}, nil
}

// Get returns a live entry.
func (c *Cache) Get(key string) (any, bool) {
	value, ok := c.store.Get(key)
	if ok {
		metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues(c.name, "miss").Inc()
	}
	return value, ok
}

// Set stores value until the TTL elapses. The write is visible on return.
func (c *Cache) Set(key string, value any) {
	c.store.SetWithTTL(key, value, 1, c.ttl)
	c.store.Wait()
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.store.Clear()
	metrics.CacheInvalidations.WithLabelValues(c.name).Inc()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}

// GetOrLoad returns the cached value for key or calls load. Only successful
// loads are stored.
func GetOrLoad[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if c != nil {
		if value, ok := c.Get(key); ok {
			if typed, ok := value.(T); ok {
				return typed, nil
			}
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if c != nil {
		c.Set(key, value)
	}
	return value, nil
}
