package providers

import (
	"net/url"
	"strings"
)

// Base provides common fields and methods shared by REST-based provider
// implementations. Embed this struct to avoid repeating name, apiKey, and
// baseURL handling across providers.
type Base struct {
	name    string
	apiKey  string
	baseURL string
	// searchPrefix is the path segment inserted between baseURL and the
	// caller's relative path, e.g. "/apiv2/".
	searchPrefix string
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// BaseURL returns the provider base URL.
func (b *Base) BaseURL() string { return b.baseURL }

// Configured reports whether an API key is set.
func (b *Base) Configured() bool { return b.apiKey != "" }

// SearchURL joins baseURL, the search prefix and path, then appends params.
// path may already carry its own query string.
func (b *Base) SearchURL(path string, params url.Values) string {
	target := b.baseURL + b.searchPrefix + strings.TrimLeft(path, "/")
	if len(params) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + params.Encode()
}

func trimBaseURL(baseURL, fallback string) string {
	if baseURL == "" {
		baseURL = fallback
	}
	return strings.TrimRight(baseURL, "/")
}
