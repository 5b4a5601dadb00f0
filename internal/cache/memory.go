package cache

import (
	"container/list"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ferro-labs/media-gateway/internal/metrics"
)

// Memory is a thread-safe in-memory LRU cache with TTL expiration.
type Memory struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	items     map[string]*list.Element
	evictList *list.List
	now       func() time.Time
}

// NewMemory creates a new in-memory LRU cache. capacity <= 0 disables the
// size bound.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	return &Memory{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// TTL returns the freshness window.
func (m *Memory) TTL() time.Duration { return m.ttl }

// Get returns the cached body for key, or false if missing or stale.
// An entry is stale once now - StoredAt >= TTL; stale entries are dropped.
func (m *Memory) Get(key string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if m.expired(entry, m.now()) {
		m.removeElement(elem)
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		return nil, false
	}

	m.evictList.MoveToFront(elem)
	return entry.Body, true
}

// Put stores body under key, replacing any previous entry.
func (m *Memory) Put(key string, body json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{Key: key, Body: body, StoredAt: m.now()}

	if elem, ok := m.items[key]; ok {
		elem.Value = entry
		m.evictList.MoveToFront(elem)
		return
	}

	if m.capacity > 0 && m.evictList.Len() >= m.capacity {
		m.removeOldest()
		metrics.CacheEvictions.WithLabelValues("capacity").Inc()
	}

	m.items[key] = m.evictList.PushFront(entry)
}

// Len returns the number of entries currently in the cache, stale or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictList.Len()
}

// Clear removes all entries and returns how many were removed.
func (m *Memory) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.evictList.Len()
	m.items = make(map[string]*list.Element)
	m.evictList.Init()
	return n
}

// Stats returns the entry count and up to sample keys in sorted order.
// sample < 0 returns every key.
func (m *Memory) Stats(sample int) Stats {
	m.mu.Lock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	sort.Strings(keys)
	size := len(keys)
	if sample >= 0 && len(keys) > sample {
		keys = keys[:sample]
	}
	return Stats{Size: size, Keys: keys}
}

// Sweep removes every stale entry and returns the number removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for elem := m.evictList.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expired(elem.Value.(*Entry), now) {
			m.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

func (m *Memory) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.StoredAt) >= m.ttl
}

func (m *Memory) removeOldest() {
	elem := m.evictList.Back()
	if elem != nil {
		m.removeElement(elem)
	}
}

func (m *Memory) removeElement(elem *list.Element) {
	m.evictList.Remove(elem)
	entry := elem.Value.(*Entry)
	delete(m.items, entry.Key)
}
