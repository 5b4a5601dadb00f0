package mediagw

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Environment names recognised by Config.Environment.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds the configuration for the media gateway.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `json:"port" yaml:"port"`
	// Environment controls whether internal error detail is exposed to callers.
	Environment string `json:"environment" yaml:"environment"`
	// CORSOrigins restricts Access-Control-Allow-Origin. Empty means "*".
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
	// TrustProxy derives the client identity from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `json:"trust_proxy" yaml:"trust_proxy"`

	Freesound  ProviderConfig   `json:"freesound" yaml:"freesound"`
	Pexels     ProviderConfig   `json:"pexels" yaml:"pexels"`
	Upstream   UpstreamConfig   `json:"upstream" yaml:"upstream"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	Download   DownloadConfig   `json:"download" yaml:"download"`
	RequestLog RequestLogConfig `json:"request_log" yaml:"request_log"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Janitor    JanitorConfig    `json:"janitor" yaml:"janitor"`
}

// ProviderConfig holds credentials and endpoint for one upstream API.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// OAuthToken is an optional OAuth2 access token used for downloads.
	OAuthToken string `json:"oauth_token,omitempty" yaml:"oauth_token,omitempty"`
}

// UpstreamConfig controls outbound HTTP calls.
type UpstreamConfig struct {
	UserAgent       string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	MetadataTimeout Duration `json:"metadata_timeout,omitempty" yaml:"metadata_timeout,omitempty"`
	DownloadTimeout Duration `json:"download_timeout,omitempty" yaml:"download_timeout,omitempty"`
}

// CacheConfig controls the JSON response cache.
type CacheConfig struct {
	TTL        Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	MaxEntries int      `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
}

// RateLimitConfig controls the fixed-window per-client limiter.
type RateLimitConfig struct {
	Window      Duration `json:"window,omitempty" yaml:"window,omitempty"`
	MaxRequests int      `json:"max_requests,omitempty" yaml:"max_requests,omitempty"`
}

// DownloadConfig restricts the hosts the download-by-URL route may fetch.
type DownloadConfig struct {
	// AllowedHosts lists exact hosts or "*.suffix" wildcards.
	AllowedHosts []string `json:"allowed_hosts,omitempty" yaml:"allowed_hosts,omitempty"`
	// AllowAnyHost disables the host check entirely (open proxy).
	AllowAnyHost bool `json:"allow_any_host" yaml:"allow_any_host"`
}

// RequestLogConfig enables persistence of proxied request records.
type RequestLogConfig struct {
	// Driver is "", "sqlite" or "postgres".
	Driver    string   `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN       string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Retention Duration `json:"retention,omitempty" yaml:"retention,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// JanitorConfig schedules background sweeps of stale in-memory state.
type JanitorConfig struct {
	// Schedule is a cron spec such as "@every 1m". Empty disables sweeping.
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// IsProduction reports whether internal error detail must be hidden.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		Port:        "3001",
		Environment: EnvDevelopment,
		Freesound:   ProviderConfig{BaseURL: "https://freesound.org"},
		Pexels:      ProviderConfig{BaseURL: "https://api.pexels.com"},
		Upstream: UpstreamConfig{
			MetadataTimeout: Duration(30 * time.Second),
			DownloadTimeout: Duration(120 * time.Second),
		},
		Cache: CacheConfig{
			TTL:        Duration(5 * time.Minute),
			MaxEntries: 1000,
		},
		RateLimit: RateLimitConfig{
			Window:      Duration(60 * time.Second),
			MaxRequests: 100,
		},
		Download: DownloadConfig{
			AllowedHosts: []string{"pexels.com", "*.pexels.com", "player.vimeo.com", "*.vimeocdn.com"},
		},
		RequestLog: RequestLogConfig{Retention: Duration(7 * 24 * time.Hour)},
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Janitor:    JanitorConfig{Schedule: "@every 1m"},
	}
}

// Duration is a time.Duration that encodes as a Go duration string ("30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
