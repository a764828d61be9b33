// Package scale maps the map zoom level to the resolution tier requested from the
// imagery service.
package scale

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rkm/terratales/internal/debounce"
)

// Defaults used by the viewer.
const (
	DefaultZoomThreshold = 11
	DefaultDebounce      = 500 * time.Millisecond
)

// Controller tracks the tier implied by zoom events and reports tier changes once
// zooming has settled. The initial tier is Coarse.
type Controller struct {
	mu        sync.Mutex
	threshold float64
	debouncer *debounce.Debouncer
	onChange  func(Tier)
	logger    *slog.Logger

	current Tier // last observed tier, updated on every crossing
	fired   Tier // last tier reported through onChange
}

// NewController creates a Controller that calls onChange after the debouncer's
// quiet period whenever the settled tier differs from the last reported one.
func NewController(threshold float64, debouncer *debounce.Debouncer, onChange func(Tier)) *Controller {
	return &Controller{
		threshold: threshold,
		debouncer: debouncer,
		onChange:  onChange,
		logger:    slog.Default(),
		current:   Coarse,
		fired:     Coarse,
	}
}

// WithLogger sets a custom logger for the controller
func (c *Controller) WithLogger(logger *slog.Logger) *Controller {
	c.logger = logger
	return c
}

// OnZoomChanged handles a zoom-end notification.
func (c *Controller) OnZoomChanged(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desired := ForZoom(zoom, c.threshold)
	if desired == c.current && !c.debouncer.Pending() {
		return
	}

	if desired != c.current {
		c.logger.Debug("zoom crossed resolution threshold",
			slog.Float64("zoom", zoom),
			slog.String("tier", desired.String()),
		)
		c.current = desired
	}

	c.debouncer.Trigger(c.settle)
}

// settle runs once zooming has been quiet for the debounce delay.
func (c *Controller) settle() {
	c.mu.Lock()
	tier := c.current
	if tier == c.fired {
		c.mu.Unlock()
		return
	}
	c.fired = tier
	c.mu.Unlock()

	c.logger.Debug("resolution tier changed", slog.String("tier", tier.String()))
	if c.onChange != nil {
		c.onChange(tier)
	}
}

// Tier returns the last observed tier.
func (c *Controller) Tier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SettledTier returns the last tier reported through the callback.
func (c *Controller) SettledTier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Stop cancels any pending tier-change callback.
func (c *Controller) Stop() {
	c.debouncer.Cancel()
}
