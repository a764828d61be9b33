// TerraTales viewer server entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkm/terratales/internal/config"
	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/pkg/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting TerraTales viewer",
		"addr", cfg.Server.Address(),
		"backend", cfg.Backend.URL,
		"zoom_threshold", cfg.Viewer.ZoomThreshold,
		"cache_size", cfg.Cache.Size,
	)

	tracker, err := newTracker(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}

	viewer, err := server.NewFromConfig(cfg, tracker, logger)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	// Closing tears down every mounted session before the tracker flushes.
	defer func() {
		if err := viewer.Close(); err != nil {
			logger.Warn("failed to flush telemetry", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      viewer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newTracker sends events to PostHog when an API key is configured and logs
// them at debug level otherwise.
func newTracker(cfg config.TelemetryConfig, logger *slog.Logger) (narrate.Tracker, error) {
	if !cfg.Enabled() {
		return narrate.NewLogTracker(logger), nil
	}

	logger.Info("sending usage events to PostHog", "endpoint", cfg.Endpoint)
	tracker, err := narrate.NewPostHogTracker(cfg.APIKey, cfg.Endpoint, logger)
	if err != nil {
		return nil, err
	}
	return tracker, nil
}

// newLogger builds the process logger. The level and format were validated with
// the rest of the configuration.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
