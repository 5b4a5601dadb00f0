package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/metrics"
	"github.com/ferro-labs/media-gateway/internal/upstream"
	"github.com/ferro-labs/media-gateway/providers"
)

// download streams a binary file from the provider. ref extracts the
// caller's reference (sound id, file URL) from the request. Downloads are
// never cached.
func (g *gateway) download(name string, ref func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := infoFromContext(r.Context())
		info.provider = name

		p, ok := g.registry.Get(name)
		if !ok {
			writeError(w, http.StatusInternalServerError, displayName(name)+" provider not registered", "")
			return
		}
		d, ok := p.(providers.Downloader)
		if !ok {
			writeError(w, http.StatusInternalServerError, displayName(name)+" does not support downloads", "")
			return
		}

		target, err := d.DownloadTarget(r.Context(), ref(r))
		if err != nil {
			info.errMsg = err.Error()
			var verr *providers.ValidationError
			switch {
			case errors.As(err, &verr):
				writeError(w, http.StatusBadRequest, verr.Error(), "")
			case errors.Is(err, providers.ErrNotConfigured):
				writeError(w, http.StatusInternalServerError, displayName(name)+" API key not configured", "")
			default:
				writeError(w, http.StatusInternalServerError, "Failed to resolve download", err.Error())
			}
			return
		}

		var opts []upstream.CallOption
		if target.CheckRedirect != nil {
			opts = append(opts, upstream.WithRedirectCheck(target.CheckRedirect))
		}
		stream, err := g.upstream.CallStream(r.Context(), name, target.URL, target.Headers, g.cfg.Upstream.DownloadTimeout.Std(), opts...)
		if err != nil {
			info.errMsg = err.Error()
			writeUpstreamError(w, r, name, err)
			return
		}

		n, err := relay(w, stream)
		metrics.StreamedBytes.WithLabelValues(name).Add(float64(n))
		if err != nil {
			info.errMsg = err.Error()
			logging.ForProvider(r.Context(), name).Warn("download interrupted",
				"bytes", n,
				"error", err,
			)
		}
	}
}

// relay copies the upstream headers and body to w. It stops at the first
// failed read or write and always closes the upstream body.
func relay(w http.ResponseWriter, s *upstream.Stream) (int64, error) {
	defer func() { _ = s.Body.Close() }()

	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if s.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(s.ContentLength, 10))
	}
	if s.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", s.ContentDisposition)
	}
	if s.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", s.ContentEncoding)
	}
	w.WriteHeader(http.StatusOK)

	return io.Copy(w, s.Body)
}
