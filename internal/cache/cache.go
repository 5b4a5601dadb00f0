// Package cache provides the JSON response cache used by the search routes.
// Entries are keyed by method, path and raw query string, expire after a
// fixed TTL and are bounded by an LRU capacity. The default in-process
// implementation is Memory; Coalescer layers request coalescing on top.
package cache

import (
	"encoding/json"
	"net/http"
	"time"
)

// Entry is a stored upstream response body. Entries are never mutated; a
// later Put for the same key replaces the entry wholesale.
type Entry struct {
	Key      string
	Body     json.RawMessage
	StoredAt time.Time
}

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Cache defines the interface for response caching.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Put(key string, body json.RawMessage)
	Clear() int
	Len() int
	Stats(sample int) Stats
}

// Key derives the cache key for r: method, path and raw query, verbatim.
// Requests whose query parameters differ only in order get distinct keys.
func Key(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	return key
}
