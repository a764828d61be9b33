package narrate

import (
	"log/slog"

	"github.com/posthog/posthog-go"
)

// Event names.
const (
	EventSessionMounted   = "session_mounted"
	EventRegionSelected   = "region_selected"
	EventYearChanged      = "year_changed"
	EventTierChanged      = "resolution_tier_changed"
	EventComparisonLoaded = "comparison_requested"
	EventSeriesLoaded     = "timeseries_requested"
	EventFetchFailed      = "image_fetch_failed"
)

// Tracker records viewer events.
type Tracker interface {
	Track(distinctID, event string, props map[string]any)
	Close() error
}

// NopTracker discards every event.
type NopTracker struct{}

// Track implements Tracker.
func (NopTracker) Track(string, string, map[string]any) {}

// Close implements Tracker.
func (NopTracker) Close() error { return nil }

// PostHogTracker sends events to PostHog.
type PostHogTracker struct {
	client posthog.Client
	logger *slog.Logger
}

// NewPostHogTracker creates a tracker for the project key. An empty endpoint
// uses the PostHog cloud default.
func NewPostHogTracker(apiKey, endpoint string, logger *slog.Logger) (*PostHogTracker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	return &PostHogTracker{client: client, logger: logger}, nil
}

// Track implements Tracker. Delivery is asynchronous; enqueue failures are
// logged and otherwise ignored.
func (t *PostHogTracker) Track(distinctID, event string, props map[string]any) {
	properties := posthog.NewProperties()
	for k, v := range props {
		properties.Set(k, v)
	}

	if err := t.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	}); err != nil {
		t.logger.Warn("failed to enqueue telemetry event",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Close flushes pending events.
func (t *PostHogTracker) Close() error {
	return t.client.Close()
}

// LogTracker writes events to a logger. It is used when no PostHog key is set.
type LogTracker struct {
	logger *slog.Logger
}

// NewLogTracker creates a LogTracker.
func NewLogTracker(logger *slog.Logger) *LogTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracker{logger: logger}
}

// Track implements Tracker.
func (t *LogTracker) Track(distinctID, event string, props map[string]any) {
	attrs := []any{slog.String("distinct_id", distinctID), slog.String("event", event)}
	for k, v := range props {
		attrs = append(attrs, slog.Any(k, v))
	}
	t.logger.Debug("telemetry event", attrs...)
}

// Close implements Tracker.
func (t *LogTracker) Close() error { return nil }
