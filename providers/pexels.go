package providers

import (
	"context"
	"net/url"
	"strings"
)

// PexelsProvider describes the Pexels stock-video API.
type PexelsProvider struct {
	Base
	hosts *HostAllowList
}

// NewPexels creates a Pexels provider. hosts restricts the download-by-URL
// route; a nil list permits any host.
func NewPexels(apiKey, baseURL string, hosts *HostAllowList) *PexelsProvider {
	return &PexelsProvider{
		Base: Base{
			name:         NamePexels,
			apiKey:       apiKey,
			baseURL:      trimBaseURL(baseURL, "https://api.pexels.com"),
			searchPrefix: "/videos/",
		},
		hosts: hosts,
	}
}

// AuthHeaders implements Provider. Pexels takes the raw key, no scheme.
func (p *PexelsProvider) AuthHeaders() map[string]string {
	return map[string]string{"Authorization": p.apiKey}
}

// DownloadTarget implements Downloader. ref is an absolute video file URL,
// fetched without credentials. Redirects are held to the same host rules.
func (p *PexelsProvider) DownloadTarget(_ context.Context, ref string) (DownloadTarget, error) {
	if ref == "" {
		return DownloadTarget{}, &ValidationError{Field: "url", Message: "url parameter is required"}
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return DownloadTarget{}, &ValidationError{Field: "url", Message: "url must be an absolute URL"}
	}
	if err := p.checkURL(u); err != nil {
		return DownloadTarget{}, err
	}
	return DownloadTarget{URL: ref, Headers: map[string]string{}, CheckRedirect: p.checkURL}, nil
}

func (p *PexelsProvider) checkURL(u *url.URL) error {
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return &ValidationError{Field: "url", Message: "url scheme must be http or https"}
	}
	if p.hosts != nil && !p.hosts.Allows(u.Hostname()) {
		return &ValidationError{Field: "url", Message: "download host " + u.Hostname() + " is not allowed"}
	}
	return nil
}
