package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ferro-labs/media-gateway/internal/cache"
	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/upstream"
	"github.com/ferro-labs/media-gateway/providers"
)

// search proxies a JSON metadata request. The "url" query parameter is the
// upstream path relative to the provider's API prefix; every other
// parameter is passed through unchanged. Successful bodies are cached.
func (g *gateway) search(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := infoFromContext(r.Context())
		info.provider = name

		p, ok := g.registry.Get(name)
		if !ok {
			writeError(w, http.StatusInternalServerError, displayName(name)+" provider not registered", "")
			return
		}

		params := r.URL.Query()
		path := params.Get("url")
		if path == "" {
			writeError(w, http.StatusBadRequest, "Missing required query parameter: url", "")
			return
		}
		if !p.Configured() {
			info.errMsg = providers.ErrNotConfigured.Error()
			writeError(w, http.StatusInternalServerError, displayName(name)+" API key not configured", "")
			return
		}
		params.Del("url")

		target := p.SearchURL(path, params)
		timeout := g.cfg.Upstream.MetadataTimeout.Std()
		body, hit, err := g.responses.Fetch(r.Context(), cache.Key(r), func(ctx context.Context) (json.RawMessage, error) {
			return g.upstream.CallJSON(ctx, name, target, p.AuthHeaders(), timeout)
		})
		info.cacheHit = hit
		if err != nil {
			info.errMsg = err.Error()
			writeUpstreamError(w, r, name, err)
			return
		}

		if hit {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// writeUpstreamError maps an upstream failure to the caller. API errors keep
// the upstream status; transport failures become 500.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, name string, err error) {
	var f *upstream.Failure
	if !errors.As(err, &f) {
		logging.ForProvider(r.Context(), name).Error("upstream call failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch from "+displayName(name), err.Error())
		return
	}

	logging.ForProvider(r.Context(), name).Warn("upstream call failed",
		"status", f.StatusCode,
		"error", f.Message,
	)
	if f.Err != nil {
		writeError(w, f.StatusCode, "Failed to fetch from "+displayName(name), f.Message)
		return
	}
	writeError(w, f.StatusCode, fmt.Sprintf("%s API error: %d %s", displayName(name), f.StatusCode, f.Message), f.Message)
}

func displayName(name string) string {
	switch name {
	case providers.NameFreesound:
		return "Freesound"
	case providers.NamePexels:
		return "Pexels"
	default:
		return name
	}
}
