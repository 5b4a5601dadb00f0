// Package ratelimit provides an in-memory fixed-window rate limiter keyed by
// client identity. It is used as HTTP middleware in front of every route.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of admitting one request.
type Decision struct {
	Allowed bool
	// Limit is the configured maximum per window.
	Limit int
	// Remaining is how many more requests the client may make this window.
	Remaining int
	// RetryAfter is the whole number of seconds until the window resets,
	// set only when the request is rejected.
	RetryAfter int
	ResetAt    time.Time
}

// Stats summarises limiter occupancy.
type Stats struct {
	ActiveClients int `json:"activeClients"`
	TotalRequests int `json:"totalRequests"`
}

type counter struct {
	count         int
	windowResetAt time.Time
}

// Store maintains one fixed-window counter per client id.
type Store struct {
	mu       sync.Mutex
	counters map[string]*counter
	window   time.Duration
	limit    int
	now      func() time.Time
}

// NewStore creates a Store admitting limit requests per client per window.
func NewStore(window time.Duration, limit int) *Store {
	return &Store{
		counters: make(map[string]*counter),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Allow admits or rejects a request from clientID at the current time.
func (s *Store) Allow(clientID string) Decision {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()
	return s.Admit(clientID, now)
}

// Admit admits or rejects a request from clientID at now. The first request
// of a window starts it; once the count exceeds the maximum, requests are
// rejected until the window resets.
func (s *Store) Admit(clientID string, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[clientID]
	if !ok || !now.Before(c.windowResetAt) {
		c = &counter{count: 1, windowResetAt: now.Add(s.window)}
		s.counters[clientID] = c
		return Decision{Allowed: true, Limit: s.limit, Remaining: s.limit - 1, ResetAt: c.windowResetAt}
	}

	c.count++
	if c.count > s.limit {
		return Decision{
			Allowed:    false,
			Limit:      s.limit,
			RetryAfter: ceilSeconds(c.windowResetAt.Sub(now)),
			ResetAt:    c.windowResetAt,
		}
	}
	return Decision{Allowed: true, Limit: s.limit, Remaining: s.limit - c.count, ResetAt: c.windowResetAt}
}

// Stats returns the number of tracked clients and the sum of their counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{ActiveClients: len(s.counters)}
	for _, c := range s.counters {
		st.TotalRequests += c.count
	}
	return st
}

// Sweep forgets clients whose window has already ended and returns how many
// were removed. A forgotten client starts a fresh window on its next request,
// exactly as it would have without the sweep.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, c := range s.counters {
		if !now.Before(c.windowResetAt) {
			delete(s.counters, id)
			removed++
		}
	}
	return removed
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}
