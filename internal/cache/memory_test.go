package cache

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory_ImplementsCache(_ *testing.T) {
	var _ Cache = (*Memory)(nil)
}

func TestMemory_PutAndGet(t *testing.T) {
	c := NewMemory(10, time.Minute)
	c.Put("key1", json.RawMessage(`{"count":1}`))

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != `{"count":1}` {
		t.Errorf("expected stored body, got %s", got)
	}
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory(10, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}

func TestMemory_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(10, 5*time.Minute)
	c.SetClock(clock.Now)
	c.Put("k", json.RawMessage(`1`))

	clock.Advance(5*time.Minute - time.Nanosecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit just inside the TTL")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss when age == TTL")
	}
	if c.Len() != 0 {
		t.Errorf("stale entry should be dropped on read, len = %d", c.Len())
	}
}

func TestMemory_PutRefreshesStoredAt(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(10, time.Minute)
	c.SetClock(clock.Now)

	c.Put("k", json.RawMessage(`"old"`))
	clock.Advance(50 * time.Second)
	c.Put("k", json.RawMessage(`"new"`))
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if string(got) != `"new"` {
		t.Errorf("got %s, want new body", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected len 1, got %d", c.Len())
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	c := NewMemory(2, time.Minute)
	c.Put("a", json.RawMessage(`"a"`))
	c.Put("b", json.RawMessage(`"b"`))
	c.Get("a") // "b" is now least recently used
	c.Put("c", json.RawMessage(`"c"`))

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected 'a' to be present (recently accessed)")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected 'c' to be present")
	}
}

func TestMemory_Unbounded(t *testing.T) {
	c := NewMemory(0, time.Minute)
	for i := 0; i < 100; i++ {
		c.Put(string(rune('a'+i%26))+string(rune('0'+i/26)), json.RawMessage(`1`))
	}
	if c.Len() != 100 {
		t.Errorf("expected 100 entries, got %d", c.Len())
	}
}

func TestMemory_Clear(t *testing.T) {
	c := NewMemory(10, time.Minute)
	c.Put("a", json.RawMessage(`1`))
	c.Put("b", json.RawMessage(`2`))

	if n := c.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("expected len 0 after clear, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after clear")
	}
}

func TestMemory_Stats(t *testing.T) {
	c := NewMemory(10, time.Minute)
	for _, k := range []string{"d", "b", "a", "c", "f", "e"} {
		c.Put(k, json.RawMessage(`1`))
	}

	s := c.Stats(5)
	if s.Size != 6 {
		t.Errorf("size = %d, want 6", s.Size)
	}
	if len(s.Keys) != 5 || s.Keys[0] != "a" || s.Keys[4] != "e" {
		t.Errorf("keys = %v, want first five sorted", s.Keys)
	}

	if all := c.Stats(-1); len(all.Keys) != 6 {
		t.Errorf("expected all keys, got %v", all.Keys)
	}
}

func TestMemory_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(10, time.Minute)
	c.SetClock(clock.Now)

	c.Put("old1", json.RawMessage(`1`))
	c.Put("old2", json.RawMessage(`1`))
	clock.Advance(30 * time.Second)
	c.Put("fresh", json.RawMessage(`1`))
	clock.Advance(40 * time.Second)

	if n := c.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive sweep")
	}
}

func TestKey(t *testing.T) {
	a := httptest.NewRequest("GET", "/api/freesound?url=search&page=1&q=x", nil)
	b := httptest.NewRequest("GET", "/api/freesound?url=search&q=x&page=1", nil)
	c := httptest.NewRequest("GET", "/api/freesound?url=search&page=1&q=x", nil)

	if Key(a) == Key(b) {
		t.Error("differently ordered queries must produce distinct keys")
	}
	if Key(a) != Key(c) {
		t.Error("identical requests must produce identical keys")
	}
	if got := Key(a); got != "GET:/api/freesound?url=search&page=1&q=x" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key(httptest.NewRequest("GET", "/api/pexels", nil)); got != "GET:/api/pexels" {
		t.Errorf("Key() without query = %q", got)
	}
}

func TestMemory_Concurrent(_ *testing.T) {
	c := NewMemory(100, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			c.Put(key, json.RawMessage(`1`))
			c.Get(key)
			c.Stats(5)
			c.Sweep()
		}(i)
	}
	wg.Wait()
}
