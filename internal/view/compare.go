package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rkm/terratales/internal/compare"
	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/internal/region"
)

// CompareSnapshot is the rendered state of a comparison view.
type CompareSnapshot struct {
	ID           string             `json:"id"`
	Kind         Kind               `json:"kind"`
	Region       region.ID          `json:"region"`
	YearA        int                `json:"yearA"`
	YearB        int                `json:"yearB"`
	ScrollLocked bool               `json:"scrollLocked"`
	Compare      compare.State      `json:"compare"`
	Announcement *narrate.Utterance `json:"announcement,omitempty"`
}

// CompareSession is the two-year comparison view. The region and years are
// chosen first; Compare loads the pair.
type CompareSession struct {
	id       string
	catalog  *region.Catalog
	tracker  narrate.Tracker
	logger   *slog.Logger
	slider   *compare.Slider
	scroll   *compare.ScrollFlag
	narrator *narrate.Recorder

	mu     sync.Mutex
	region region.ID
	yearA  int
	yearB  int
	closed bool
}

// NewCompareSession mounts a comparison view with the default years.
func NewCompareSession(id string, fetcher imagery.Fetcher, catalog *region.Catalog, opts Options) *CompareSession {
	opts = opts.withDefaults()
	logger := opts.Logger.With(slog.String("session_id", id), slog.String("view", string(KindCompare)))

	scroll := &compare.ScrollFlag{}
	s := &CompareSession{
		id:       id,
		catalog:  catalog,
		tracker:  opts.Tracker,
		logger:   logger,
		scroll:   scroll,
		slider:   compare.NewSlider(fetcher, catalog, scroll).WithLogger(logger),
		narrator: narrate.NewRecorder(logger),
		yearA:    compare.DefaultYearA,
		yearB:    compare.DefaultYearB,
	}

	s.tracker.Track(id, narrate.EventSessionMounted, map[string]any{"view": string(KindCompare)})
	return s
}

// ID implements Session.
func (s *CompareSession) ID() string { return s.id }

// Kind implements Session.
func (s *CompareSession) Kind() Kind { return KindCompare }

// Slider returns the comparison slider.
func (s *CompareSession) Slider() *compare.Slider { return s.slider }

// SelectRegion chooses the region to compare and announces it.
func (s *CompareSession) SelectRegion(id region.ID) error {
	r, err := s.catalog.Lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.region = id
	s.narrator.Say(context.Background(), narrate.ForRegion(r))
	s.tracker.Track(s.id, narrate.EventRegionSelected, map[string]any{"region": string(id)})
	return nil
}

// SetYears chooses the two years to compare.
func (s *CompareSession) SetYears(yearA, yearB int) error {
	if err := region.ValidateYear(yearA); err != nil {
		return err
	}
	if err := region.ValidateYear(yearB); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.yearA, s.yearB = yearA, yearB
	return nil
}

// Compare loads the selected pair. Without a region it does nothing.
func (s *CompareSession) Compare() error {
	s.mu.Lock()
	req := compare.Request{Region: s.region, YearA: s.yearA, YearB: s.yearB}
	closed := s.closed
	s.mu.Unlock()

	if closed || req.Region == "" {
		return nil
	}

	s.tracker.Track(s.id, narrate.EventComparisonLoaded, map[string]any{
		"region": string(req.Region),
		"year_a": req.YearA,
		"year_b": req.YearB,
	})
	return s.slider.Load(req)
}

// Snapshot implements Session.
func (s *CompareSession) Snapshot() any {
	return s.CompareSnapshot()
}

// CompareSnapshot returns the current view state.
func (s *CompareSession) CompareSnapshot() CompareSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CompareSnapshot{
		ID:           s.id,
		Kind:         KindCompare,
		Region:       s.region,
		YearA:        s.yearA,
		YearB:        s.yearB,
		ScrollLocked: s.scroll.Locked(),
		Compare:      s.slider.State(),
		Announcement: s.narrator.Last(),
	}
}

// Wait blocks until every issued pair has settled or been dropped.
func (s *CompareSession) Wait() {
	s.slider.Wait()
}

// Close implements Session. Scrolling is restored even when closed mid-drag.
func (s *CompareSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.slider.Close()
	s.narrator.Clear()
	s.logger.Debug("compare session closed")
}
