package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/metrics"
)

// ClientID returns the client identity for r: the host part of RemoteAddr.
// When a proxy-aware middleware such as chi's RealIP runs first, RemoteAddr
// already carries the forwarded address.
func ClientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware admits each request through store before it reaches next.
// Rejected requests get 429 with a JSON body and a Retry-After header.
// Requests for exemptPaths pass through uncounted.
func Middleware(store *Store, exemptPaths ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			client := ClientID(r)
			d := store.Allow(client)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				metrics.RateLimitRejections.Inc()
				logging.FromContext(r.Context()).Warn("rate limit exceeded",
					"client", client,
					"path", r.URL.Path,
					"retry_after", d.RetryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Too many requests, please try again later.",
					"retryAfter": d.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
