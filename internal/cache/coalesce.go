package cache

import (
	"context"
	"encoding/json"

	"github.com/ferro-labs/media-gateway/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// LoadFunc fetches a fresh body on a cache miss.
type LoadFunc func(ctx context.Context) (json.RawMessage, error)

// Coalescer serves cached bodies and collapses concurrent misses for the
// same key into a single load. Only successful loads are stored.
type Coalescer struct {
	cache Cache
	group singleflight.Group
}

// NewCoalescer wraps c.
func NewCoalescer(c Cache) *Coalescer {
	return &Coalescer{cache: c}
}

// Cache returns the underlying store.
func (c *Coalescer) Cache() Cache { return c.cache }

// Fetch returns the body for key and whether it came from the cache. On a
// miss, load runs once per key no matter how many callers are waiting; its
// context is detached from the caller's cancellation so one disconnecting
// client does not fail the others.
func (c *Coalescer) Fetch(ctx context.Context, key string, load LoadFunc) (json.RawMessage, bool, error) {
	if body, ok := c.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		return body, true, nil
	}
	metrics.CacheMisses.Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		body, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, body)
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(json.RawMessage), false, nil
}
