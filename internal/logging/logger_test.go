package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware_GeneratesTraceID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("trace id %q is not a UUID: %v", seen, err)
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Errorf("X-Request-ID = %q, want %q", w.Header().Get("X-Request-ID"), seen)
	}
}

func TestMiddleware_HonoursInboundID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc-123" {
		t.Errorf("trace id = %q, want inbound id", seen)
	}
}

func TestFromContext_AddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "info", "json")
	defer Setup("", "")

	FromContext(WithTraceID(context.Background(), "t-1")).Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["trace_id"] != "t-1" {
		t.Errorf("trace_id = %v", line["trace_id"])
	}
}

func TestSetupWriter_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "text")
	defer Setup("", "")

	Logger.Info("dropped")
	Logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected text handler output, got %q", out)
	}
}

func TestMiddleware_ReplacesUnusableID(t *testing.T) {
	tests := map[string]string{
		"too long":     strings.Repeat("a", MaxRequestIDLen+1),
		"newline":      "abc\n{\"level\":\"ERROR\"}",
		"space":        "abc def",
		"non-ascii":    "trace-é",
		"at the limit": strings.Repeat("b", MaxRequestIDLen),
	}
	for name, inbound := range tests {
		t.Run(name, func(t *testing.T) {
			var seen string
			h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = TraceIDFromContext(r.Context())
			}))
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(RequestIDHeader, inbound)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if name == "at the limit" {
				if seen != inbound {
					t.Errorf("id at the length limit should be kept, got %q", seen)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("unusable id %q was kept as %q", inbound, seen)
			}
		})
	}
}

func TestForProvider(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")
	defer Setup("", "")

	ForProvider(WithTraceID(context.Background(), "t-2"), "pexels").Debug("relay")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["provider"] != "pexels" || line["trace_id"] != "t-2" {
		t.Errorf("unexpected attributes: %v", line)
	}
}

func TestSetupWriter_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "verbose", "json")
	defer Setup("", "")

	Logger.Debug("hidden")
	Logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
