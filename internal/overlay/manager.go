// Package overlay owns the single georeferenced image layer shown on the map.
package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/mapview"
	"github.com/rkm/terratales/internal/region"
)

// Presentation constants for installed overlays.
const (
	Opacity     = 0.85
	FitMaxZoom  = 12
	FitPadding  = 40
	FlyDuration = 1500 * time.Millisecond
)

// Manager keeps at most one image layer on a map. Layers are replaced, never
// mutated: every SetImage removes the current layer before anything is added.
type Manager struct {
	mu      sync.Mutex
	m       mapview.Map
	catalog *region.Catalog
	layer   *mapview.ImageLayer
	nextID  uint64
	logger  *slog.Logger
}

// NewManager creates a manager drawing on m.
func NewManager(m mapview.Map, catalog *region.Catalog) *Manager {
	return &Manager{
		m:       m,
		catalog: catalog,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the manager
func (o *Manager) WithLogger(logger *slog.Logger) *Manager {
	o.logger = logger
	return o
}

// SetImage replaces the overlay with d. A nil descriptor, or one without a
// bounding box, leaves the map without an overlay.
func (o *Manager) SetImage(d *imagery.ImageDescriptor) {
	o.mu.Lock()

	if o.layer != nil {
		o.m.RemoveLayer(o.layer)
		o.layer = nil
	}

	if !d.Placeable() {
		o.mu.Unlock()
		if d != nil {
			o.logger.Warn("image has no bounding box, overlay not drawn", slog.String("url", d.ImageURL))
		}
		return
	}

	o.nextID++
	layer := &mapview.ImageLayer{
		ID:          o.nextID,
		URL:         d.ImageURL,
		Bounds:      *d.BoundingBox,
		Opacity:     Opacity,
		Interactive: false,
	}
	o.m.AddLayer(layer)
	o.layer = layer
	o.mu.Unlock()

	o.logger.Debug("overlay installed",
		slog.Uint64("layer_id", layer.ID),
		slog.String("url", layer.URL),
	)

	o.m.FitBounds(layer.Bounds, mapview.FitOptions{MaxZoom: FitMaxZoom, Padding: FitPadding})
}

// SetRegion recenters the map on the region, or on the world view for the empty
// id. It runs independently of overlay installation.
func (o *Manager) SetRegion(id region.ID) {
	if id == "" {
		o.m.FlyTo(mapview.WorldCenter, mapview.WorldZoom, mapview.FlyOptions{Duration: FlyDuration})
		return
	}

	r, err := o.catalog.Lookup(id)
	if err != nil {
		o.logger.Warn("cannot fly to region", slog.String("error", err.Error()))
		return
	}
	o.m.FlyTo(r.Center, r.Zoom, mapview.FlyOptions{Duration: FlyDuration})
}

// Layer returns the installed layer, or nil.
func (o *Manager) Layer() *mapview.ImageLayer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.layer
}

// Clear removes the installed layer, if any.
func (o *Manager) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.layer != nil {
		o.m.RemoveLayer(o.layer)
		o.layer = nil
	}
}
