package cachemanager

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/regform/internal/log"
)

// Loader produces the value for key on a cache miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// ReadThrough serves from cache and falls back to load on a miss.
// Concurrent misses on the same key share one load.
type ReadThrough[V any] struct {
	cache *Cache[V]
	load  Loader[V]
	group singleflight.Group
	skip  bool
	onHit func(key string)
}

// NewReadThrough wraps cache with load. When skip is true every Get loads.
func NewReadThrough[V any](cache *Cache[V], load Loader[V], skip bool) *ReadThrough[V] {
	return &ReadThrough[V]{cache: cache, load: load, skip: skip}
}

// OnHit registers fn to run on every cache hit.
func (r *ReadThrough[V]) OnHit(fn func(key string)) *ReadThrough[V] {
	r.onHit = fn
	return r
}

// Get returns the cached value for key or loads it. Load errors are not cached.
func (r *ReadThrough[V]) Get(ctx context.Context, key string) (V, error) {
	if r.skip {
		return r.load(ctx, key)
	}
	if v, ok := r.cache.Get(key); ok {
		log.Debug(log.CatCache, "cache hit", "cache", r.cache.Name(), "key", key)
		if r.onHit != nil {
			r.onHit(key)
		}
		return v, nil
	}

	res, err, _ := r.group.Do(key, func() (any, error) {
		v, err := r.load(ctx, key)
		if err != nil {
			return v, err
		}
		r.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Invalidate drops key so the next Get loads again.
func (r *ReadThrough[V]) Invalidate(key string) {
	r.cache.Delete(key)
	r.group.Forget(key)
	log.Debug(log.CatCache, "cache invalidated", "cache", r.cache.Name(), "key", key)
}
