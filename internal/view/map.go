package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rkm/terratales/internal/debounce"
	"github.com/rkm/terratales/internal/fetch"
	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/mapview"
	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/internal/overlay"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
	"github.com/rkm/terratales/pkg/geo"
)

// MapSnapshot is the rendered state of a single-overlay map view.
type MapSnapshot struct {
	ID           string                   `json:"id"`
	Kind         Kind                     `json:"kind"`
	Selection    fetch.Selection          `json:"selection"`
	Tier         string                   `json:"tier"`
	Zoom         float64                  `json:"zoom"`
	Center       geo.LatLng               `json:"center"`
	Image        *imagery.ImageDescriptor `json:"image"`
	Layer        *mapview.ImageLayer      `json:"layer"`
	Loading      bool                     `json:"loading"`
	Error        string                   `json:"error,omitempty"`
	Announcement *narrate.Utterance       `json:"announcement,omitempty"`
}

// MapSession is the single-overlay view: region and year selection drive the
// fetch orchestrator, settled zoom tiers refine the request, and each applied
// image replaces the overlay.
type MapSession struct {
	id      string
	catalog *region.Catalog
	tracker narrate.Tracker
	logger  *slog.Logger

	canvas   *mapview.Canvas
	scale    *scale.Controller
	overlay  *overlay.Manager
	orch     *fetch.Orchestrator
	narrator *narrate.Recorder

	mu          sync.Mutex
	selection   fetch.Selection
	unsubscribe func()
	closed      bool

	// applied is only touched from orchestrator callbacks.
	applied *imagery.ImageDescriptor
}

// NewMapSession mounts a map view.
func NewMapSession(id string, fetcher imagery.Fetcher, catalog *region.Catalog, opts Options) *MapSession {
	opts = opts.withDefaults()
	logger := opts.Logger.With(slog.String("session_id", id), slog.String("view", string(KindMap)))

	s := &MapSession{
		id:        id,
		catalog:   catalog,
		tracker:   opts.Tracker,
		logger:    logger,
		canvas:    mapview.NewCanvas(opts.ViewportWidth, opts.ViewportHeight),
		narrator:  narrate.NewRecorder(logger),
		selection: fetch.Selection{Year: DefaultYear},
	}

	debouncer := debounce.New(opts.Debounce, opts.Clock)
	s.scale = scale.NewController(opts.ZoomThreshold, debouncer, s.onTierSettled).WithLogger(logger)
	s.overlay = overlay.NewManager(s.canvas, catalog).WithLogger(logger)
	s.orch = fetch.New(fetcher, catalog).WithLogger(logger)
	s.orch.OnChange(s.onFetchState)

	s.tracker.Track(id, narrate.EventSessionMounted, map[string]any{"view": string(KindMap)})
	return s
}

// ID implements Session.
func (s *MapSession) ID() string { return s.id }

// Kind implements Session.
func (s *MapSession) Kind() Kind { return KindMap }

// Canvas returns the map surface.
func (s *MapSession) Canvas() *mapview.Canvas { return s.canvas }

// SelectRegion selects a region, or clears the selection for the empty id. The
// map flies to the region and the region name is announced.
func (s *MapSession) SelectRegion(id region.ID) error {
	var r *region.Region
	if id != "" {
		var err error
		if r, err = s.catalog.Lookup(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.selection.Region = id

	// Zoom is observed only while a region is selected.
	if id != "" && s.unsubscribe == nil {
		s.unsubscribe = s.canvas.OnZoomEnd(s.scale.OnZoomChanged)
	}
	if id == "" && s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.overlay.SetRegion(id)
	if r != nil {
		s.narrator.Say(context.Background(), narrate.ForRegion(r))
		s.tracker.Track(s.id, narrate.EventRegionSelected, map[string]any{"region": string(id)})
	}

	s.orch.OnSelectionOrTierChanged(s.selection, s.scale.SettledTier())
	return nil
}

// SetYear changes the selected year.
func (s *MapSession) SetYear(year int) error {
	if err := region.ValidateYear(year); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.selection.Year == year {
		return nil
	}

	s.selection.Year = year
	s.tracker.Track(s.id, narrate.EventYearChanged, map[string]any{"year": year})
	s.orch.OnSelectionOrTierChanged(s.selection, s.scale.SettledTier())
	return nil
}

// Zoom applies a user zoom gesture.
func (s *MapSession) Zoom(zoom float64) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if !closed {
		s.canvas.SetZoom(zoom)
	}
}

// onTierSettled refetches at the tier the scale controller settled on.
func (s *MapSession) onTierSettled(tier scale.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.selection.Complete() {
		return
	}

	s.tracker.Track(s.id, narrate.EventTierChanged, map[string]any{"tier": tier.String()})
	s.orch.OnSelectionOrTierChanged(s.selection, tier)
}

// onFetchState mirrors applied images onto the overlay.
func (s *MapSession) onFetchState(st fetch.State) {
	if st.Loading {
		return
	}

	if st.Error != "" {
		s.tracker.Track(s.id, narrate.EventFetchFailed, map[string]any{
			"key":   st.Key.String(),
			"error": st.Error,
		})
	}

	if st.Data == s.applied {
		return
	}
	s.applied = st.Data
	s.overlay.SetImage(st.Data)
}

// Snapshot implements Session.
func (s *MapSession) Snapshot() any {
	return s.MapSnapshot()
}

// MapSnapshot returns the current view state.
func (s *MapSession) MapSnapshot() MapSnapshot {
	s.mu.Lock()
	sel := s.selection
	s.mu.Unlock()

	st := s.orch.State()
	return MapSnapshot{
		ID:           s.id,
		Kind:         KindMap,
		Selection:    sel,
		Tier:         s.scale.SettledTier().String(),
		Zoom:         s.canvas.Zoom(),
		Center:       s.canvas.Center(),
		Image:        st.Data,
		Layer:        s.overlay.Layer(),
		Loading:      st.Loading,
		Error:        st.Error,
		Announcement: s.narrator.Last(),
	}
}

// Wait blocks until every issued fetch has settled or been dropped.
func (s *MapSession) Wait() {
	s.orch.Wait()
}

// Close implements Session. It stops observing zoom, cancels the pending tier
// timer and in-flight fetch, and removes the overlay.
func (s *MapSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()

	s.scale.Stop()
	s.orch.Close()
	s.overlay.Clear()
	s.narrator.Clear()

	s.logger.Debug("map session closed")
}
