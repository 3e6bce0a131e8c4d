// Package cache provides a bounded loader cache: LRU storage plus singleflight,
// so concurrent misses for the same key trigger a single load.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LoaderCache loads values on miss via a callback and coalesces concurrent
// loads for the same key. Both the LRU and the singleflight group are safe
// for concurrent use, so one LoaderCache can be shared across sessions.
type LoaderCache[K comparable, V any] struct {
	lru   *lru.Cache[string, V]
	group singleflight.Group
	keyFn func(K) string
}

// New creates a loader cache holding at most maxEntries values.
func New[K comparable, V any](maxEntries int, keyFn func(K) string) (*LoaderCache[K, V], error) {
	l, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, err
	}
	return &LoaderCache[K, V]{lru: l, keyFn: keyFn}, nil
}

// Get returns the value for key, loading it on miss. Failed loads are not cached.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, error) {
	v, _, err := c.GetWithStats(ctx, key, load)
	return v, err
}

// GetWithStats is like Get but also reports whether the value was a cache hit.
func (c *LoaderCache[K, V]) GetWithStats(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, bool, error) {
	k := c.keyFn(key)
	if v, ok := c.lru.Get(k); ok {
		return v, true, nil
	}

	val, err, _ := c.group.Do(k, func() (any, error) {
		loaded, err := load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.lru.Add(k, loaded)
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return val.(V), false, nil
}

// Invalidate removes the entry for key.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	c.lru.Remove(c.keyFn(key))
}

// Purge removes all entries.
func (c *LoaderCache[K, V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
