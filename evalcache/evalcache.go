// Package evalcache memoizes expensive evaluations behind a TTL + LRU bounded
// cache with single-flight computation: concurrent callers for the same cold
// key share one in-flight computation instead of recomputing.
package evalcache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type Cache[V any] struct {
	data  *expirable.LRU[string, V]
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New builds a cache bounded to capacity entries, each expiring ttl after
// insertion. Least-recently-used entries are evicted once capacity is hit.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		data: expirable.NewLRU[string, V](capacity, nil, ttl),
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.data.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// GetOrCompute returns the cached value for key, or runs fn to produce it.
// At most one fn runs per key at a time; concurrent callers for the same key
// block on the in-flight computation and share its result. Errors are not
// cached. The bool reports whether the value came from cache.
func (c *Cache[V]) GetOrCompute(key string, fn func() (V, error)) (V, bool, error) {
	if v, ok := c.data.Get(key); ok {
		c.hits.Add(1)
		return v, true, nil
	}

	computed := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		// a concurrent flight may have populated the entry while we waited
		if v, ok := c.data.Get(key); ok {
			return v, nil
		}
		computed = true
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.data.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		c.misses.Add(1)
		return zero, false, err
	}
	if computed {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	return v.(V), !computed, nil
}

// Flush drops every cached entry. Called on rule-set mutation: a rule change
// can invalidate any cached decision, so correctness wins over efficiency.
func (c *Cache[V]) Flush() {
	c.data.Purge()
}

func (c *Cache[V]) Len() int {
	return c.data.Len()
}

// HitRate returns the fraction of lookups served from cache since startup.
func (c *Cache[V]) HitRate() float64 {
	h := c.hits.Load()
	m := c.misses.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}
