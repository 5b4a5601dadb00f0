package providers

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// FreesoundProvider describes the Freesound sound-sample API.
type FreesoundProvider struct {
	Base
	tokens oauth2.TokenSource
}

// NewFreesound creates a Freesound provider. The optional baseURL parameter
// allows overriding the API endpoint (pass "" for the default). oauthToken,
// when non-empty, is sent as a bearer token on downloads, which Freesound
// requires for original-quality files.
func NewFreesound(apiKey, baseURL, oauthToken string) *FreesoundProvider {
	p := &FreesoundProvider{
		Base: Base{
			name:         NameFreesound,
			apiKey:       apiKey,
			baseURL:      trimBaseURL(baseURL, "https://freesound.org"),
			searchPrefix: "/apiv2/",
		},
	}
	if oauthToken != "" {
		p.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: oauthToken, TokenType: "Bearer"})
	}
	return p
}

// AuthHeaders implements Provider.
func (p *FreesoundProvider) AuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Token " + p.apiKey}
}

// DownloadTarget implements Downloader. ref is a numeric sound id.
func (p *FreesoundProvider) DownloadTarget(_ context.Context, ref string) (DownloadTarget, error) {
	if ref == "" {
		return DownloadTarget{}, &ValidationError{Field: "id", Message: "sound id is required"}
	}
	for _, c := range ref {
		if c < '0' || c > '9' {
			return DownloadTarget{}, &ValidationError{Field: "id", Message: "sound id must be numeric"}
		}
	}
	// A bearer token authenticates downloads on its own.
	if p.tokens == nil && !p.Configured() {
		return DownloadTarget{}, ErrNotConfigured
	}

	headers := p.AuthHeaders()
	if p.tokens != nil {
		tok, err := p.tokens.Token()
		if err != nil {
			return DownloadTarget{}, fmt.Errorf("freesound oauth token: %w", err)
		}
		headers["Authorization"] = tok.Type() + " " + tok.AccessToken
	}

	return DownloadTarget{
		URL:     fmt.Sprintf("%s/apiv2/sounds/%s/download/", p.baseURL, ref),
		Headers: headers,
	}, nil
}
