// Package config provides configuration management for the TerraTales viewer service.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DotEnvFiles are loaded, when present, before the environment is parsed.
// Variables already set in the environment win.
var DotEnvFiles = []string{".env.local", ".env"}

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Backend   BackendConfig   `envPrefix:"BACKEND_"`
	Viewer    ViewerConfig    `envPrefix:"VIEWER_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	Sessions  SessionConfig   `envPrefix:"SESSION_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_"`
	STAC      STACConfig      `envPrefix:"STAC_"`
	Telemetry TelemetryConfig `envPrefix:"POSTHOG_"`
	Logging   LoggingConfig   `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// BackendConfig points at the imagery service.
type BackendConfig struct {
	URL     string        `env:"URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// ViewerConfig tunes the view sessions.
type ViewerConfig struct {
	ZoomThreshold  float64       `env:"ZOOM_THRESHOLD" envDefault:"11"`
	Debounce       time.Duration `env:"DEBOUNCE" envDefault:"500ms"`
	ViewportWidth  int           `env:"VIEWPORT_WIDTH" envDefault:"1280"`
	ViewportHeight int           `env:"VIEWPORT_HEIGHT" envDefault:"800"`
	// RegionsFile optionally overrides region display data (YAML).
	RegionsFile string `env:"REGIONS_FILE" envDefault:""`
}

// CacheConfig controls the in-memory caches of image descriptors and series.
type CacheConfig struct {
	Size int           `env:"SIZE" envDefault:"256"`
	TTL  time.Duration `env:"TTL" envDefault:"10m"`
}

// SessionConfig controls mounted view sessions.
type SessionConfig struct {
	TTL             time.Duration `env:"TTL" envDefault:"30m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
	MaxSessions     int           `env:"MAX" envDefault:"1000"`
}

// RateLimitConfig limits /api requests per client.
type RateLimitConfig struct {
	Enabled bool    `env:"ENABLED" envDefault:"true"`
	RPS     float64 `env:"RPS" envDefault:"20"`
	Burst   int     `env:"BURST" envDefault:"40"`
}

// STACConfig contains the metadata of the STAC collection documents.
type STACConfig struct {
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	BaseURL     string `env:"BASE_URL" envDefault:""` // Public-facing URL; request host when empty
	Title       string `env:"TITLE" envDefault:"TerraTales"`
	Description string `env:"DESCRIPTION" envDefault:"Spectral index imagery of Alaska, Manaus and Mexico City, 1990-2025"`
}

// TelemetryConfig enables PostHog event capture when APIKey is set.
type TelemetryConfig struct {
	APIKey   string `env:"API_KEY" envDefault:""`
	Endpoint string `env:"ENDPOINT" envDefault:"https://us.i.posthog.com"`
}

// Enabled reports whether events are sent to PostHog.
func (t TelemetryConfig) Enabled() bool {
	return t.APIKey != ""
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables after loading any
// DotEnvFiles. It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	for _, f := range DotEnvFiles {
		_ = godotenv.Load(f)
	}
	return parse(env.Options{RequiredIfNoDef: true})
}

// LoadFromMap parses configuration from vars instead of the process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{RequiredIfNoDef: true, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	// Validate backend config
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend URL must be an absolute http(s) URL, got %q", c.Backend.URL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout)
	}

	// Validate viewer config
	if c.Viewer.ZoomThreshold <= 0 {
		return fmt.Errorf("zoom threshold must be positive, got %v", c.Viewer.ZoomThreshold)
	}

	if c.Viewer.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Viewer.Debounce)
	}

	if c.Viewer.ViewportWidth < 1 || c.Viewer.ViewportHeight < 1 {
		return fmt.Errorf("viewport must be at least 1x1, got %dx%d", c.Viewer.ViewportWidth, c.Viewer.ViewportHeight)
	}

	// Validate cache config
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.Cache.Size)
	}

	// Validate session config
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.Sessions.TTL)
	}

	if c.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("session cleanup interval must be positive, got %s", c.Sessions.CleanupInterval)
	}

	// Validate rate limit config
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit needs a positive rps and burst, got %v/%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}

	// Validate STAC config
	if c.STAC.Version == "" {
		return fmt.Errorf("STAC version is required")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
