// Package compare implements the two-image comparison slider: image A drawn
// unclipped underneath, image B on top clipped from the slider position to the
// right edge.
package compare

import (
	"sync"

	"github.com/samber/lo"
)

// InitialPosition is the slider position on mount.
const InitialPosition = 50.0

// Rect is the container's bounding box in client pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Touch is one touch point in client pixels.
type Touch struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
}

// SliderState is the clip boundary and drag flag.
type SliderState struct {
	Position float64 `json:"position"`
	Dragging bool    `json:"dragging"`
}

// ClipRect is the visible horizontal span of image B, in percent of the
// container width.
type ClipRect struct {
	FromPercent float64 `json:"fromPercent"`
	ToPercent   float64 `json:"toPercent"`
}

// ScrollLock suspends document scrolling while the slider is dragged.
type ScrollLock interface {
	Lock()
	Unlock()
}

// PositionFor converts a pointer x coordinate into a slider position clamped to
// [0,100]. It reports false for a container without width.
func PositionFor(x float64, r Rect) (float64, bool) {
	if r.Width <= 0 {
		return 0, false
	}
	return lo.Clamp((x-r.Left)/r.Width*100, 0, 100), true
}

// ClipFor returns the clip of image B at the given slider position.
func ClipFor(position float64) ClipRect {
	return ClipRect{FromPercent: lo.Clamp(position, 0, 100), ToPercent: 100}
}

// DragStart begins a drag and suspends scrolling.
func (s *Slider) DragStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.slider.Dragging {
		return
	}
	s.slider.Dragging = true
	s.acquireScroll()
}

// PointerMove moves the boundary to the pointer while dragging.
func (s *Slider) PointerMove(x float64, r Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slider.Dragging {
		return
	}
	if p, ok := PositionFor(x, r); ok {
		s.slider.Position = p
	}
}

// TouchMove moves the boundary to the first touch point while dragging.
func (s *Slider) TouchMove(touches []Touch, r Rect) {
	if len(touches) == 0 {
		return
	}
	s.PointerMove(touches[0].ClientX, r)
}

// DragEnd finishes the drag and restores scrolling.
func (s *Slider) DragEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slider.Dragging = false
	s.releaseScroll()
}

// PointerLeave ends the drag when the pointer leaves the container.
func (s *Slider) PointerLeave() {
	s.DragEnd()
}

// SliderState returns the current boundary and drag flag.
func (s *Slider) SliderState() SliderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slider
}

// Clip returns the visible span of image B.
func (s *Slider) Clip() ClipRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ClipFor(s.slider.Position)
}

// acquireScroll locks scrolling once. Caller holds mu.
func (s *Slider) acquireScroll() {
	if s.scrollHeld || s.scroll == nil {
		return
	}
	s.scroll.Lock()
	s.scrollHeld = true
}

// releaseScroll undoes acquireScroll. Caller holds mu.
func (s *Slider) releaseScroll() {
	if !s.scrollHeld {
		return
	}
	s.scroll.Unlock()
	s.scrollHeld = false
}

// ScrollFlag is a ScrollLock that records whether scrolling is suspended.
// Sessions expose it so a browser front-end can mirror the lock.
type ScrollFlag struct {
	mu      sync.Mutex
	locked  bool
	locks   int
	unlocks int
}

// Lock implements ScrollLock.
func (f *ScrollFlag) Lock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = true
	f.locks++
}

// Unlock implements ScrollLock.
func (f *ScrollFlag) Unlock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = false
	f.unlocks++
}

// Locked reports whether scrolling is currently suspended.
func (f *ScrollFlag) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// Counts returns how many times the lock was taken and released.
func (f *ScrollFlag) Counts() (locks, unlocks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks, f.unlocks
}
