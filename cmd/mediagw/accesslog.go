package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/metrics"
	"github.com/ferro-labs/media-gateway/internal/ratelimit"
	"github.com/ferro-labs/media-gateway/internal/requestlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type requestInfoKey struct{}

// requestInfo is filled in by proxy handlers so the access log can record
// which provider served the request and how.
type requestInfo struct {
	provider string
	cacheHit bool
	errMsg   string
}

func infoFromContext(ctx context.Context) *requestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		return info
	}
	return &requestInfo{}
}

// accessLog emits one structured line per request, updates the request
// metrics and, for proxied API calls, hands an entry to rec.
func accessLog(rec recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)

			metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			logger := logging.FromContext(r.Context())
			attrs := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"client", ratelimit.ClientID(r),
			}
			if info.provider != "" {
				attrs = append(attrs, "provider", info.provider, "cache_hit", info.cacheHit)
			}
			if info.errMsg != "" {
				attrs = append(attrs, "error", info.errMsg)
			}
			logger.Info("request", attrs...)

			if rec != nil && info.provider != "" {
				rec.Record(requestlog.Entry{
					TraceID:      logging.TraceIDFromContext(r.Context()),
					Route:        route,
					Provider:     info.provider,
					Method:       r.Method,
					Path:         r.URL.Path,
					Status:       status,
					CacheHit:     info.cacheHit,
					Bytes:        int64(ww.BytesWritten()),
					DurationMS:   elapsed.Milliseconds(),
					ClientID:     ratelimit.ClientID(r),
					ErrorMessage: info.errMsg,
				})
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
