// Package cachemanager provides typed in-memory caches on top of go-cache.
package cachemanager

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/regform/internal/log"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
	// NoExpiration keeps an entry until it is deleted or flushed.
	NoExpiration = gocache.NoExpiration
)

// Cache is a typed wrapper around a go-cache instance. Name only shows up in logs.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	cache *gocache.Cache
}

// New creates a cache whose entries live for ttl unless set otherwise.
func New[V any](name string, ttl, cleanupInterval time.Duration) *Cache[V] {
	return &Cache[V]{
		name:  name,
		ttl:   ttl,
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Name returns the cache name.
func (c *Cache[V]) Name() string {
	return c.name
}

// Get returns the value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	raw, found := c.cache.Get(key)
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type stored in cache", "cache", c.name, "key", key)
		return zero, false
	}
	return v, true
}

// GetWithRefresh returns the value under key and restarts its expiry.
func (c *Cache[V]) GetWithRefresh(key string) (V, bool) {
	v, ok := c.Get(key)
	if ok {
		c.cache.Set(key, v, c.ttl)
	}
	return v, ok
}

// Set stores value under key with the default expiry.
func (c *Cache[V]) Set(key string, value V) {
	c.cache.Set(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit expiry.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// GetOrCreate returns the value under key, creating it with create when
// absent. Concurrent callers for the same key all get the same value.
// Each access restarts the expiry, so entries only expire when idle.
func (c *Cache[V]) GetOrCreate(key string, create func() V) V {
	if v, ok := c.GetWithRefresh(key); ok {
		return v
	}
	v := create()
	if err := c.cache.Add(key, v, c.ttl); err != nil {
		// Lost the race; use the winner's value.
		if existing, ok := c.Get(key); ok {
			return existing
		}
		c.cache.Set(key, v, c.ttl)
	}
	log.Debug(log.CatCache, "cache entry created", "cache", c.name, "key", key)
	return v
}

// Delete removes keys.
func (c *Cache[V]) Delete(keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// Flush removes every entry.
func (c *Cache[V]) Flush() {
	c.cache.Flush()
}

// Len returns the number of entries, including expired ones not yet cleaned up.
func (c *Cache[V]) Len() int {
	return c.cache.ItemCount()
}
