package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc produces a tool result on cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// ResultCache wraps a Cache with request collapsing: concurrent identical
// tool calls share one upstream fetch via singleflight, and successful
// results are stored for reuse. Errors are never cached.
type ResultCache struct {
	cache Cache
	group singleflight.Group
	ttl   time.Duration
}

// NewResultCache creates a result cache over the given backend.
// A non-positive ttl disables storage but keeps request collapsing.
func NewResultCache(cache Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{cache: cache, ttl: ttl}
}

// Fetch returns the cached result for the tool call or runs fetch to
// produce it. The returned bool reports whether the result came from cache.
func (r *ResultCache) Fetch(ctx context.Context, tool string, args map[string]any, fetch FetchFunc) ([]byte, bool, error) {
	key, err := Key(tool, args)
	if err != nil {
		// Unkeyable arguments, fetch without caching.
		result, err := fetch(ctx)
		return result, false, err
	}

	if cached, ok := r.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	result, err, _ := r.group.Do(key, func() (any, error) {
		// Another caller may have filled the cache while we waited.
		if cached, ok := r.cache.Get(ctx, key); ok {
			return cached, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		_ = r.cache.Set(ctx, key, value, r.ttl)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.([]byte), false, nil
}

// Invalidate drops the cached result for a tool call, if any.
func (r *ResultCache) Invalidate(ctx context.Context, tool string, args map[string]any) error {
	key, err := Key(tool, args)
	if err != nil {
		return err
	}
	return r.cache.Delete(ctx, key)
}
