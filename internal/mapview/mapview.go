// Package mapview defines the navigable map surface the viewer draws on and a
// headless implementation of it.
package mapview

import (
	"time"

	"github.com/rkm/terratales/pkg/geo"
)

// ImageLayer is a georeferenced raster drawn over the base map.
type ImageLayer struct {
	ID          uint64          `json:"id"`
	URL         string          `json:"url"`
	Bounds      geo.BoundingBox `json:"bounds"`
	Opacity     float64         `json:"opacity"`
	Interactive bool            `json:"interactive"`
}

// FitOptions controls FitBounds.
type FitOptions struct {
	MaxZoom float64
	// Padding in pixels applied on every side.
	Padding int
}

// FlyOptions controls FlyTo.
type FlyOptions struct {
	Duration time.Duration
}

// Map is the rendering surface: a pannable, zoomable map with image overlays.
type Map interface {
	Zoom() float64
	Center() geo.LatLng

	// SetZoom applies a user zoom gesture.
	SetZoom(zoom float64)

	AddLayer(layer *ImageLayer)
	RemoveLayer(layer *ImageLayer)
	Layers() []*ImageLayer

	FitBounds(bounds geo.BoundingBox, opts FitOptions)
	FlyTo(center geo.LatLng, zoom float64, opts FlyOptions)

	// OnZoomEnd registers a listener called after every zoom change. The returned
	// function removes it.
	OnZoomEnd(fn func(zoom float64)) (unsubscribe func())
}

// World view shown when no region is selected.
var (
	WorldCenter = geo.LatLng{Lat: 20, Lng: 0}
	WorldZoom   = 2.0
)
