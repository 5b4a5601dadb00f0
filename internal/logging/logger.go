// Package logging configures the gateway's slog output and ties log lines to
// requests.
//
// Every inbound request carries a request id: the caller's X-Request-ID when
// it is usable, a fresh UUID otherwise. FromContext returns a logger stamped
// with that id as trace_id; ForProvider additionally stamps the upstream
// provider a handler is proxying to.
package logging

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// MaxRequestIDLen bounds caller-supplied request ids. Longer ids, or ids
// containing anything outside printable ASCII, are replaced so they cannot
// bloat or forge log lines.
const MaxRequestIDLen = 128

type contextKey struct{}

// Logger is the process-wide logger. Handlers should use FromContext.
var Logger *slog.Logger

func init() {
	Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup configures Logger on stdout and installs it as the slog default.
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination. level accepts any name
// slog understands ("debug", "WARN", "info+2"); unknown values mean info.
// format is "text" or, by default, "json".
func SetupWriter(w io.Writer, level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithTraceID stores a request id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// TraceIDFromContext returns the request id in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromContext returns Logger annotated with the request id in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return Logger.With("trace_id", id)
	}
	return Logger
}

// ForProvider is FromContext plus the upstream provider name.
func ForProvider(ctx context.Context, provider string) *slog.Logger {
	return FromContext(ctx).With("provider", provider)
}

// Middleware assigns the request id and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
