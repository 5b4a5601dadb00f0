package mediagw

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", configSchemaJSON)
	})
	return schema, schemaErr
}

// LoadConfig reads and parses a config file from the given path, starting
// from DefaultConfig so that omitted fields keep their defaults.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var doc interface{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	// Round-trip through JSON so YAML scalars take the same shape the schema
	// validator and the struct decoder expect.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalizing config: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return nil, fmt.Errorf("normalizing config: %w", err)
	}

	sch, err := configSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	if m, ok := generic.(map[string]interface{}); ok {
		if p, ok := m["port"].(float64); ok {
			m["port"] = strconv.Itoa(int(p))
		}
		if normalized, err = json.Marshal(m); err != nil {
			return nil, fmt.Errorf("normalizing config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg with values read through lookup (normally
// os.LookupEnv). Only variables that are present are applied.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &cfg.Port)
	str("APP_ENV", &cfg.Environment)
	str("FREESOUND_API_KEY", &cfg.Freesound.APIKey)
	str("FREESOUND_OAUTH_TOKEN", &cfg.Freesound.OAuthToken)
	str("FREESOUND_BASE_URL", &cfg.Freesound.BaseURL)
	str("PEXELS_API_KEY", &cfg.Pexels.APIKey)
	str("PEXELS_BASE_URL", &cfg.Pexels.BaseURL)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("REQUEST_LOG_DRIVER", &cfg.RequestLog.Driver)
	str("REQUEST_LOG_DSN", &cfg.RequestLog.DSN)

	if v, ok := lookup("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if v, ok := lookup("TRUST_PROXY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = b
	}
	return nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", cfg.Port)
	}

	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit window must be positive")
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit max_requests must be positive")
	}
	if cfg.Upstream.MetadataTimeout <= 0 || cfg.Upstream.DownloadTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}

	for name, p := range map[string]ProviderConfig{"freesound": cfg.Freesound, "pexels": cfg.Pexels} {
		if p.BaseURL == "" {
			return fmt.Errorf("%s base_url is required", name)
		}
		if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
			return fmt.Errorf("%s base_url %q must be http or https", name, p.BaseURL)
		}
	}

	if !cfg.Download.AllowAnyHost {
		if len(cfg.Download.AllowedHosts) == 0 {
			return fmt.Errorf("download allowed_hosts is empty; set allow_any_host to permit every host")
		}
		for _, h := range cfg.Download.AllowedHosts {
			host := strings.TrimPrefix(h, "*.")
			if host == "" || strings.ContainsAny(host, "/*") {
				return fmt.Errorf("invalid download host pattern %q", h)
			}
			if _, _, err := net.SplitHostPort(host); err == nil {
				return fmt.Errorf("download host pattern %q must not include a port", h)
			}
		}
	}

	switch cfg.RequestLog.Driver {
	case "", "sqlite":
	case "postgres":
		if cfg.RequestLog.DSN == "" {
			return fmt.Errorf("request_log dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown request_log driver %q", cfg.RequestLog.Driver)
	}

	if cfg.Janitor.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Janitor.Schedule); err != nil {
			return fmt.Errorf("invalid janitor schedule %q: %w", cfg.Janitor.Schedule, err)
		}
	}

	return nil
}
