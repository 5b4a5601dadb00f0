package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	mediagw "github.com/ferro-labs/media-gateway"
	"github.com/ferro-labs/media-gateway/internal/cache"
	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/ratelimit"
	"github.com/ferro-labs/media-gateway/internal/requestlog"
	"github.com/ferro-labs/media-gateway/internal/upstream"
	"github.com/ferro-labs/media-gateway/providers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// recorder receives one entry per proxied API request.
type recorder interface {
	Record(e requestlog.Entry)
}

// gateway carries the process-scoped state shared by all handlers.
type gateway struct {
	cfg       mediagw.Config
	registry  *providers.Registry
	responses *cache.Coalescer
	limiter   *ratelimit.Store
	upstream  *upstream.Client
	requests  recorder
	started   time.Time
}

var availableEndpoints = []string{
	"GET /health",
	"GET /metrics",
	"GET /api/freesound?url=<path>",
	"GET /api/freesound/download/{id}",
	"GET /api/pexels?url=<path>",
	"GET /api/pexels/download?url=<absolute-url>",
	"GET /api/cache/status",
	"DELETE /api/cache/clear",
}

// newRouter builds the HTTP router.
func newRouter(g *gateway) http.Handler {
	if g.started.IsZero() {
		g.started = time.Now()
	}

	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(recoverer(g.cfg.IsProduction()))
	if g.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(corsMiddleware(g.cfg.CORSOrigins...))
	r.Use(accessLog(g.requests))
	// Every request but a metrics scrape is counted, unmatched paths included.
	r.Use(ratelimit.Middleware(g.limiter, "/metrics"))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/health", g.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/freesound", g.search(providers.NameFreesound))
		r.Get("/freesound/download/{id}", g.download(providers.NameFreesound, func(r *http.Request) string {
			return chi.URLParam(r, "id")
		}))
		r.Get("/pexels", g.search(providers.NamePexels))
		r.Get("/pexels/download", g.download(providers.NamePexels, func(r *http.Request) string {
			return r.URL.Query().Get("url")
		}))

		r.Get("/cache/status", g.cacheStatus)
		r.Delete("/cache/clear", g.cacheClear)
	})

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":              "Not found",
		"path":               r.URL.Path,
		"availableEndpoints": availableEndpoints,
	})
}

// recoverer converts panics into a 500 JSON body. The panic value and stack
// are only exposed outside production.
func recoverer(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := string(debug.Stack())
				logging.FromContext(r.Context()).Error("panic recovered",
					"panic", fmt.Sprint(rec),
					"path", r.URL.Path,
					"stack", stack,
				)
				body := map[string]interface{}{"error": "Internal server error"}
				if !production {
					body["details"] = fmt.Sprint(rec)
					body["stack"] = stack
				}
				writeJSON(w, http.StatusInternalServerError, body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the standard {error, details?} body.
func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]interface{}{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
