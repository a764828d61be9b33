// Package view holds the mounted views of the viewer. A session is created when a
// view mounts and torn down with Close when it unmounts; nothing it owns is used
// before creation or after teardown.
package view

import (
	"log/slog"
	"time"

	"github.com/rkm/terratales/internal/debounce"
	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
)

// Kind names a view type.
type Kind string

// View kinds.
const (
	KindMap     Kind = "map"
	KindCompare Kind = "compare"
	KindSeries  Kind = "series"
)

// DefaultYear is the year selected when a map view mounts.
const DefaultYear = region.MinYear

// Default viewport size of the headless map.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Session is a mounted view.
type Session interface {
	ID() string
	Kind() Kind
	Snapshot() any
	Close()
}

// Options configures sessions. Zero values select the defaults.
type Options struct {
	ZoomThreshold  float64
	Debounce       time.Duration
	ViewportWidth  int
	ViewportHeight int

	Clock   debounce.Clock
	Tracker narrate.Tracker
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ZoomThreshold == 0 {
		o.ZoomThreshold = scale.DefaultZoomThreshold
	}
	if o.Debounce == 0 {
		o.Debounce = scale.DefaultDebounce
	}
	if o.ViewportWidth == 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight == 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.Clock == nil {
		o.Clock = debounce.RealClock()
	}
	if o.Tracker == nil {
		o.Tracker = narrate.NopTracker{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
