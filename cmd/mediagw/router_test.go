package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverer(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	tests := []struct {
		name       string
		production bool
		wantStack  bool
	}{
		{"development exposes stack", false, true},
		{"production hides stack", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := recoverer(tt.production)(panicky)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/api/freesound", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] == nil {
				t.Error("missing error field")
			}
			_, hasStack := body["stack"]
			if hasStack != tt.wantStack {
				t.Errorf("stack present = %v, want %v", hasStack, tt.wantStack)
			}
			if tt.wantStack && body["details"] != "boom" {
				t.Errorf("details = %v, want boom", body["details"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("any origin by default", func(t *testing.T) {
		h := corsMiddleware()(ok)
		req := httptest.NewRequest("GET", "/api/pexels", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
		expose := w.Header().Get("Access-Control-Expose-Headers")
		for _, hdr := range []string{"Content-Disposition", "X-Cache", "X-Request-ID"} {
			if !strings.Contains(expose, hdr) {
				t.Errorf("Expose-Headers %q missing %s", expose, hdr)
			}
		}
	})

	t.Run("preflight", func(t *testing.T) {
		h := corsMiddleware()(ok)
		req := httptest.NewRequest("OPTIONS", "/api/cache/clear", nil)
		req.Header.Set("Access-Control-Request-Method", "DELETE")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
			t.Error("preflight should allow DELETE")
		}
	})

	t.Run("restricted origins", func(t *testing.T) {
		h := corsMiddleware("https://app.example", " ")(ok)

		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
			t.Errorf("Allow-Origin = %q", got)
		}

		req = httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://other.example")
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty for unlisted origin", got)
		}
	})
}

func TestRouter_EchoesRequestID(t *testing.T) {
	env := newTestEnv(t, jsonUpstream(searchBody))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("router should apply CORS, got %q", got)
	}
}
