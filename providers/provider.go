// Package providers describes the third-party media APIs the gateway fronts.
//
// A Provider is a descriptor, not a client: it knows its base URL, how to
// build an upstream search URL and which credential headers to inject. The
// outbound HTTP call itself is made by internal/upstream, which never needs
// to know which provider it is talking to.
//
// Downloader extends Provider for APIs that expose a binary download route.
package providers

import (
	"context"
	"errors"
	"net/url"
)

// Provider names used in routes, metrics and logs.
const (
	NameFreesound = "freesound"
	NamePexels    = "pexels"
)

// ErrNotConfigured is returned when a provider's API key is unset.
var ErrNotConfigured = errors.New("provider API key not configured")

// ValidationError reports a caller-supplied input that cannot be proxied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Provider defines the interface every upstream media API implements.
type Provider interface {
	Name() string
	// BaseURL returns the provider's root API URL (no trailing slash).
	BaseURL() string
	// Configured reports whether the provider's API key is set.
	Configured() bool
	// AuthHeaders returns the HTTP headers required to authenticate with the
	// provider (e.g. {"Authorization": "Token ..."}).
	AuthHeaders() map[string]string
	// SearchURL builds the upstream URL for a relative path fragment plus
	// passthrough query parameters.
	SearchURL(path string, params url.Values) string
}

// DownloadTarget is a fully resolved upstream download request.
// CheckRedirect, when set, must approve every redirect hop the upstream
// answers with.
type DownloadTarget struct {
	URL           string
	Headers       map[string]string
	CheckRedirect func(*url.URL) error
}

// Downloader is an optional interface for providers with a binary download
// route. ref is the caller-supplied reference (a sound id, a file URL).
type Downloader interface {
	Provider
	DownloadTarget(ctx context.Context, ref string) (DownloadTarget, error)
}
