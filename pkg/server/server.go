// Package server provides a public API for embedding the TerraTales viewer service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rkm/terratales/internal/api"
	"github.com/rkm/terratales/internal/config"
	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/session"
	"github.com/rkm/terratales/internal/timeseries"
	"github.com/rkm/terratales/internal/view"
)

// Options configures the viewer server.
type Options struct {
	// BaseURL is the public-facing URL for STAC self links.
	// Default: derived from each request
	BaseURL string

	// BackendURL is the imagery service base URL.
	// Default: "http://localhost:5000"
	BackendURL string

	// Timeout is the imagery service request timeout.
	// Default: 60s
	Timeout time.Duration

	// Title is the STAC catalog title.
	// Default: "TerraTales"
	Title string

	// Description is the STAC catalog description.
	Description string

	// RegionsFile is a YAML file overriding region display data.
	// Default: "" (built-in catalog)
	RegionsFile string

	// CacheSize is the number of image descriptors and series kept in memory.
	// Default: 0 (no cache)
	CacheSize int

	// CacheTTL is how long cached entries live.
	// Default: 10m
	CacheTTL time.Duration

	// SessionTTL is how long an idle view session is kept.
	// Default: 30m
	SessionTTL time.Duration

	// MaxSessions bounds mounted sessions; 0 means unlimited.
	MaxSessions int

	// CORSOrigins lists the allowed origins.
	// Default: all
	CORSOrigins []string

	// RateLimitRPS enables per-client limiting of /api when positive.
	RateLimitRPS float64

	// RateLimitBurst is the per-client burst.
	// Default: twice RateLimitRPS
	RateLimitBurst int

	// Tracker receives usage events.
	// Default: narrate.NopTracker
	Tracker narrate.Tracker

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a viewer server that can be embedded in another application.
type Server struct {
	router  chi.Router
	store   *session.MemoryStore
	tracker narrate.Tracker
}

// New creates a new viewer server with the given options.
func New(opts Options) (*Server, error) {
	cfg, err := config.LoadFromMap(map[string]string{})
	if err != nil {
		return nil, err
	}

	if opts.BackendURL != "" {
		cfg.Backend.URL = opts.BackendURL
	}
	if opts.Timeout > 0 {
		cfg.Backend.Timeout = opts.Timeout
	}
	cfg.STAC.BaseURL = opts.BaseURL
	if opts.Title != "" {
		cfg.STAC.Title = opts.Title
	}
	if opts.Description != "" {
		cfg.STAC.Description = opts.Description
	}
	cfg.Viewer.RegionsFile = opts.RegionsFile
	cfg.Cache.Size = opts.CacheSize
	if opts.CacheTTL > 0 {
		cfg.Cache.TTL = opts.CacheTTL
	}
	if opts.SessionTTL > 0 {
		cfg.Sessions.TTL = opts.SessionTTL
	}
	cfg.Sessions.MaxSessions = opts.MaxSessions
	if len(opts.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = opts.CORSOrigins
	}
	cfg.RateLimit.Enabled = opts.RateLimitRPS > 0
	if cfg.RateLimit.Enabled {
		cfg.RateLimit.RPS = opts.RateLimitRPS
		cfg.RateLimit.Burst = opts.RateLimitBurst
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = max(1, int(2*opts.RateLimitRPS))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return NewFromConfig(cfg, opts.Tracker, opts.Logger)
}

// NewFromConfig wires a server from a loaded configuration. A nil tracker
// disables usage events; a nil logger selects slog.Default().
func NewFromConfig(cfg *config.Config, tracker narrate.Tracker, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = narrate.NopTracker{}
	}

	// Load region catalog
	catalog := region.Default()
	if cfg.Viewer.RegionsFile != "" {
		var err error
		catalog, err = region.LoadFile(cfg.Viewer.RegionsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded region overrides", "file", cfg.Viewer.RegionsFile)
	}
	logger.Info("loaded regions", "count", catalog.Count())

	client := imagery.NewClient(cfg.Backend.URL, cfg.Backend.Timeout).
		WithLogger(logger).
		WithCache(cfg.Cache.Size, cfg.Cache.TTL)
	logger.Info("using imagery service", "base_url", client.BaseURL())

	adapter := timeseries.NewAdapter(client, catalog).
		WithLogger(logger).
		WithCache(cfg.Cache.Size, cfg.Cache.TTL)

	store := session.NewMemoryStore(cfg.Sessions.TTL, cfg.Sessions.CleanupInterval, cfg.Sessions.MaxSessions).
		WithLogger(logger)

	handlers := api.NewHandlers(cfg, client, adapter, catalog, logger).
		WithSessionStore(store).
		WithViewOptions(view.Options{
			ZoomThreshold:  cfg.Viewer.ZoomThreshold,
			Debounce:       cfg.Viewer.Debounce,
			ViewportWidth:  cfg.Viewer.ViewportWidth,
			ViewportHeight: cfg.Viewer.ViewportHeight,
			Tracker:        tracker,
			Logger:         logger,
		})

	routerOpts := api.RouterOptions{CORSOrigins: cfg.Server.CORSOrigins}
	if cfg.RateLimit.Enabled {
		routerOpts.RateLimiter = api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.Sessions.TTL).
			WithLogger(logger)
	}

	return &Server{
		router:  api.NewRouter(handlers, routerOpts, logger),
		store:   store,
		tracker: tracker,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close tears down every mounted session and flushes the tracker.
func (s *Server) Close() error {
	s.store.Stop()
	return s.tracker.Close()
}
