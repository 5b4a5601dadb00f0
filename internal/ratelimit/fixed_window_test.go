package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ferro-labs/media-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAdmitWithinLimit(t *testing.T) {
	s := NewStore(time.Minute, 5)
	for i := 0; i < 5; i++ {
		d := s.Admit("a", epoch.Add(time.Duration(i)*time.Second))
		if !d.Allowed {
			t.Fatalf("expected allow on request %d within limit", i+1)
		}
		if d.Remaining != 5-(i+1) {
			t.Errorf("request %d: remaining = %d", i+1, d.Remaining)
		}
	}
}

func TestRejectAfterLimit(t *testing.T) {
	s := NewStore(time.Minute, 3)
	for i := 0; i < 3; i++ {
		s.Admit("a", epoch)
	}
	d := s.Admit("a", epoch.Add(20*time.Second+500*time.Millisecond))
	if d.Allowed {
		t.Fatal("expected rejection of request limit+1")
	}
	// 39.5s left in the window rounds up.
	if d.RetryAfter != 40 {
		t.Errorf("RetryAfter = %d, want 40", d.RetryAfter)
	}
}

func TestRetryAfterAlwaysPositive(t *testing.T) {
	s := NewStore(time.Minute, 1)
	s.Admit("a", epoch)
	d := s.Admit("a", epoch.Add(time.Minute-time.Millisecond))
	if d.Allowed || d.RetryAfter <= 0 {
		t.Fatalf("decision = %+v, want rejection with positive RetryAfter", d)
	}
}

func TestWindowResets(t *testing.T) {
	s := NewStore(time.Minute, 2)
	s.Admit("a", epoch)
	s.Admit("a", epoch)
	if s.Admit("a", epoch.Add(59*time.Second)).Allowed {
		t.Fatal("expected rejection inside the window")
	}

	d := s.Admit("a", epoch.Add(time.Minute))
	if !d.Allowed {
		t.Fatal("expected allow once the window elapsed")
	}
	if !d.ResetAt.Equal(epoch.Add(2 * time.Minute)) {
		t.Errorf("new window should start at the reset request, ResetAt = %v", d.ResetAt)
	}
	if !s.Admit("a", epoch.Add(time.Minute+time.Second)).Allowed {
		t.Error("second request of the new window should be allowed")
	}
}

func TestClientsAreIndependent(t *testing.T) {
	s := NewStore(time.Minute, 1)
	s.Admit("a", epoch)
	if s.Admit("a", epoch).Allowed {
		t.Fatal("expected a to be limited")
	}
	if !s.Admit("b", epoch).Allowed {
		t.Fatal("expected b to have its own window")
	}
}

func TestStatsAndSweep(t *testing.T) {
	now := epoch
	s := NewStore(time.Minute, 10)
	s.SetClock(func() time.Time { return now })

	s.Allow("a")
	s.Allow("a")
	now = now.Add(30 * time.Second)
	s.Allow("b")

	st := s.Stats()
	if st.ActiveClients != 2 || st.TotalRequests != 3 {
		t.Errorf("stats = %+v, want 2 clients / 3 requests", st)
	}

	now = now.Add(30 * time.Second) // a's window has ended, b's has not
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if st := s.Stats(); st.ActiveClients != 1 {
		t.Errorf("active clients after sweep = %d, want 1", st.ActiveClients)
	}
}

func TestClientID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:54321"
	if got := ClientID(r); got != "203.0.113.9" {
		t.Errorf("ClientID() = %q", got)
	}
	r.RemoteAddr = "[2001:db8::1]:443"
	if got := ClientID(r); got != "2001:db8::1" {
		t.Errorf("ClientID() ipv6 = %q", got)
	}
	r.RemoteAddr = "203.0.113.9"
	if got := ClientID(r); got != "203.0.113.9" {
		t.Errorf("ClientID() without port = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	s := NewStore(time.Minute, 2)
	s.SetClock(func() time.Time { return epoch })
	h := Middleware(s)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	before := testutil.ToFloat64(metrics.RateLimitRejections)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/pexels", nil)
		req.RemoteAddr = "198.51.100.7:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["error"]; !ok {
		t.Error("rejection body missing error field")
	}
	if body["retryAfter"] != float64(60) {
		t.Errorf("retryAfter = %v", body["retryAfter"])
	}
	if got := testutil.ToFloat64(metrics.RateLimitRejections) - before; got != 1 {
		t.Errorf("rejections metric delta = %v, want 1", got)
	}
}

func TestMiddleware_ExemptPaths(t *testing.T) {
	s := NewStore(time.Minute, 1)
	s.SetClock(func() time.Time { return epoch })
	h := Middleware(s, "/metrics")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path string) int {
		req := httptest.NewRequest("GET", path, nil)
		req.RemoteAddr = "198.51.100.8:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("/metrics"); code != http.StatusOK {
			t.Fatalf("exempt request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := do("/health"); code != http.StatusOK {
		t.Fatalf("exempt requests consumed the budget: status = %d", code)
	}
	if code := do("/health"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}
}
