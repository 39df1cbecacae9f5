// Package config handles YAML configuration loading with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Providers []ProviderEntry `yaml:"providers"`
}

// ServerConfig holds HTTP server settings for the admin surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminToken      string        `yaml:"admin_token"` // empty leaves the admin surface open
}

// DatabaseConfig holds SQLite settings for snapshot persistence.
type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`            // file path or ":memory:"
	KeepSnapshots int    `yaml:"keep_snapshots"` // retained snapshot rows
}

// CacheConfig holds the response cache settings.
type CacheConfig struct {
	DefaultTTL       time.Duration `yaml:"default_ttl"`
	MaxSize          int           `yaml:"max_size"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"` // 0 disables periodic snapshots
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// ProviderEntry configures one upstream data provider: its endpoint, its
// cache TTL, and its request budget.
type ProviderEntry struct {
	Name      string         `yaml:"name"`
	BaseURL   string         `yaml:"base_url"`
	APIKey    string         `yaml:"api_key"`
	TTL       time.Duration  `yaml:"ttl"`
	RateLimit RateLimitEntry `yaml:"rate_limit"`
	Enabled   *bool          `yaml:"enabled"`
	OAuth     *OAuthEntry    `yaml:"oauth"` // client-credentials auth instead of api_key
	TimeoutMs int            `yaml:"timeout_ms"`
}

// RateLimitEntry is a per-provider budget: requests per trailing window.
type RateLimitEntry struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// OAuthEntry configures OAuth2 client-credentials authentication.
type OAuthEntry struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
}

// IsEnabled reports whether the provider is enabled (defaults to true when nil).
func (p ProviderEntry) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Timeout returns the provider request timeout, defaulting to 10s.
func (p ProviderEntry) Timeout() time.Duration {
	if p.TimeoutMs > 0 {
		return time.Duration(p.TimeoutMs) * time.Millisecond
	}
	return 10 * time.Second
}

// CacheOptions builds the cache construction options from the config:
// the global knobs plus every enabled provider's TTL and rate limit.
func (c *Config) CacheOptions() cache.Options {
	opts := cache.Options{
		DefaultTTL:      c.Cache.DefaultTTL,
		MaxSize:         c.Cache.MaxSize,
		CleanupInterval: c.Cache.CleanupInterval,
		ProviderTTLs:    make(map[string]time.Duration),
		RateLimits:      make(map[string]cache.RateLimit),
	}
	for _, p := range c.Providers {
		if !p.IsEnabled() {
			continue
		}
		if p.TTL > 0 {
			opts.ProviderTTLs[p.Name] = p.TTL
		}
		if p.RateLimit.Requests > 0 {
			opts.RateLimits[p.Name] = cache.RateLimit{
				Requests: p.RateLimit.Requests,
				Window:   p.RateLimit.Window,
			}
		}
	}
	return opts
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:           "nexuscache.db",
			KeepSnapshots: 5,
		},
		Cache: CacheConfig{
			DefaultTTL:       5 * time.Minute,
			MaxSize:          10_000,
			CleanupInterval:  time.Minute,
			SnapshotInterval: 5 * time.Minute,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
