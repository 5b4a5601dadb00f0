// Package metrics registers the Prometheus metrics used by the gateway.
// All metrics are registered on the default registry at package init and
// exposed by the server's /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level counters and histograms.
var (
	// RequestsTotal counts completed inbound requests labelled by route
	// pattern and HTTP status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_requests_total",
			Help: "Total number of requests processed by the gateway.",
		},
		[]string{"route", "code"},
	)

	// RequestDuration observes end-to-end request latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagw_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"route"},
	)

	// UpstreamRequests counts outbound calls by provider, kind ("json",
	// "stream") and outcome ("success", "upstream_error", "transport_error",
	// "invalid_body").
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_upstream_requests_total",
			Help: "Total upstream API calls by outcome.",
		},
		[]string{"provider", "kind", "outcome"},
	)

	// UpstreamDuration observes the time until upstream response headers
	// (or failure) in seconds.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagw_upstream_duration_seconds",
			Help:    "Upstream call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "kind"},
	)

	// StreamedBytes counts body bytes relayed to callers by download routes.
	StreamedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_streamed_bytes_total",
			Help: "Total bytes relayed by download routes.",
		},
		[]string{"provider"},
	)
)

// Cache and rate-limit counters.
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediagw_cache_hits_total",
		Help: "Total response cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediagw_cache_misses_total",
		Help: "Total response cache misses.",
	})

	// CacheEvictions counts entries removed by LRU pressure or sweeping,
	// labelled by reason ("capacity", "expired").
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_cache_evictions_total",
			Help: "Total cache entries evicted.",
		},
		[]string{"reason"},
	)

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediagw_rate_limit_rejections_total",
		Help: "Total requests rejected by rate limiting.",
	})

	// RequestLogDropped counts request log entries discarded because the
	// write queue was full or already closed.
	RequestLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediagw_request_log_dropped_total",
		Help: "Total request log entries dropped before reaching the store.",
	})
)
