package mapview

import (
	"math"
	"sync"

	"github.com/rkm/terratales/pkg/geo"
)

const (
	tileSize = 256

	// DefaultMinZoom and DefaultMaxZoom bound the base map tiles.
	DefaultMinZoom = 0
	DefaultMaxZoom = 19
)

// Canvas is a headless Map using Web Mercator geometry. It keeps the viewport
// state a browser map would hold so views can be driven server-side.
type Canvas struct {
	mu        sync.Mutex
	width     int
	height    int
	minZoom   float64
	maxZoom   float64
	center    geo.LatLng
	zoom      float64
	layers    []*ImageLayer
	listeners map[int]func(float64)
	nextID    int
}

// NewCanvas creates a canvas of the given pixel size showing the world view.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:     width,
		height:    height,
		minZoom:   DefaultMinZoom,
		maxZoom:   DefaultMaxZoom,
		center:    WorldCenter,
		zoom:      WorldZoom,
		listeners: make(map[int]func(float64)),
	}
}

// Size returns the viewport size in pixels.
func (c *Canvas) Size() (width, height int) {
	return c.width, c.height
}

// Zoom implements Map.
func (c *Canvas) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// Center implements Map.
func (c *Canvas) Center() geo.LatLng {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

// SetZoom implements Map.
func (c *Canvas) SetZoom(zoom float64) {
	c.setView(c.Center(), zoom)
}

// AddLayer implements Map.
func (c *Canvas) AddLayer(layer *ImageLayer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.layers {
		if l == layer {
			return
		}
	}
	c.layers = append(c.layers, layer)
}

// RemoveLayer implements Map.
func (c *Canvas) RemoveLayer(layer *ImageLayer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.layers {
		if l == layer {
			c.layers = append(c.layers[:i], c.layers[i+1:]...)
			return
		}
	}
}

// Layers implements Map.
func (c *Canvas) Layers() []*ImageLayer {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*ImageLayer, len(c.layers))
	copy(out, c.layers)
	return out
}

// FitBounds implements Map.
func (c *Canvas) FitBounds(bounds geo.BoundingBox, opts FitOptions) {
	zoom := c.BoundsZoom(bounds, opts.Padding)
	if opts.MaxZoom > 0 && zoom > opts.MaxZoom {
		zoom = opts.MaxZoom
	}

	sw := project(bounds.SouthWest, 0)
	ne := project(bounds.NorthEast, 0)
	center := unproject(point{x: (sw.x + ne.x) / 2, y: (sw.y + ne.y) / 2}, 0)

	c.setView(center, zoom)
}

// FlyTo implements Map. The headless canvas lands immediately.
func (c *Canvas) FlyTo(center geo.LatLng, zoom float64, _ FlyOptions) {
	c.setView(center, zoom)
}

// OnZoomEnd implements Map.
func (c *Canvas) OnZoomEnd(fn func(zoom float64)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// ListenerCount returns the number of registered zoom listeners.
func (c *Canvas) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// BoundsZoom returns the largest whole zoom at which bounds fit the viewport
// minus padding on every side.
func (c *Canvas) BoundsZoom(bounds geo.BoundingBox, padding int) float64 {
	sw := project(bounds.SouthWest, 0)
	ne := project(bounds.NorthEast, 0)
	dx := math.Abs(ne.x - sw.x)
	dy := math.Abs(sw.y - ne.y)

	availX := float64(c.width - 2*padding)
	availY := float64(c.height - 2*padding)
	if availX <= 0 || availY <= 0 {
		return c.minZoom
	}

	if dx == 0 && dy == 0 {
		return c.maxZoom
	}

	scale := math.Inf(1)
	if dx > 0 {
		scale = math.Min(scale, availX/dx)
	}
	if dy > 0 {
		scale = math.Min(scale, availY/dy)
	}

	return c.clampZoom(math.Floor(math.Log2(scale)))
}

func (c *Canvas) clampZoom(z float64) float64 {
	return math.Max(c.minZoom, math.Min(c.maxZoom, z))
}

// setView moves the viewport and notifies zoom listeners when the zoom changed.
func (c *Canvas) setView(center geo.LatLng, zoom float64) {
	c.mu.Lock()
	zoom = c.clampZoom(zoom)
	changed := zoom != c.zoom
	c.center = center
	c.zoom = zoom

	var listeners []func(float64)
	if changed {
		for _, fn := range c.listeners {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(zoom)
	}
}

type point struct {
	x, y float64
}

// project converts to Web Mercator pixel coordinates at the given zoom.
func project(p geo.LatLng, zoom float64) point {
	scale := tileSize * math.Exp2(zoom)
	lat := math.Max(-85.0511287798, math.Min(85.0511287798, p.Lat))
	sin := math.Sin(lat * math.Pi / 180)
	return point{
		x: (p.Lng + 180) / 360 * scale,
		y: (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale,
	}
}

func unproject(pt point, zoom float64) geo.LatLng {
	scale := tileSize * math.Exp2(zoom)
	lng := pt.x/scale*360 - 180
	n := math.Pi - 2*math.Pi*pt.y/scale
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return geo.LatLng{Lat: lat, Lng: lng}
}
