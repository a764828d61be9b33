package view

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rkm/terratales/internal/narrate"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/timeseries"
)

// seriesConcurrency bounds the number of regions fetched at once.
const seriesConcurrency = 3

// SeriesCard is the chart of one region.
type SeriesCard struct {
	Region     region.ID          `json:"region"`
	FullName   string             `json:"fullName"`
	Index      region.IndexKind   `json:"index"`
	ChartColor string             `json:"color"`
	StartYear  int                `json:"startYear"`
	EndYear    int                `json:"endYear"`
	Points     []timeseries.Point `json:"points"`
	Gaps       []int              `json:"gaps,omitempty"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
}

// SeriesSnapshot is the rendered state of a time-series view.
type SeriesSnapshot struct {
	ID    string       `json:"id"`
	Kind  Kind         `json:"kind"`
	Cards []SeriesCard `json:"cards"`
}

// SeriesSession is the time-series view: one chart per region over the full
// year range.
type SeriesSession struct {
	id      string
	catalog *region.Catalog
	adapter *timeseries.Adapter
	tracker narrate.Tracker
	logger  *slog.Logger

	mu       sync.Mutex
	cards    []SeriesCard
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	inflight sync.WaitGroup
}

// NewSeriesSession mounts a time-series view.
func NewSeriesSession(id string, adapter *timeseries.Adapter, catalog *region.Catalog, opts Options) *SeriesSession {
	opts = opts.withDefaults()
	logger := opts.Logger.With(slog.String("session_id", id), slog.String("view", string(KindSeries)))

	s := &SeriesSession{
		id:      id,
		catalog: catalog,
		adapter: adapter,
		tracker: opts.Tracker,
		logger:  logger,
	}

	s.tracker.Track(id, narrate.EventSessionMounted, map[string]any{"view": string(KindSeries)})
	return s
}

// ID implements Session.
func (s *SeriesSession) ID() string { return s.id }

// Kind implements Session.
func (s *SeriesSession) Kind() Kind { return KindSeries }

// Load fetches the series of the given regions, or of every catalog region when
// none are given. A newer Load supersedes one still in flight.
func (s *SeriesSession) Load(ids ...region.ID) error {
	var regions []*region.Region
	if len(ids) == 0 {
		regions = s.catalog.All()
	}
	for _, id := range ids {
		r, err := s.catalog.Lookup(id)
		if err != nil {
			return err
		}
		regions = append(regions, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.cards = make([]SeriesCard, len(regions))
	for i, r := range regions {
		s.cards[i] = SeriesCard{
			Region:     r.ID,
			FullName:   r.FullName,
			Index:      r.Index,
			ChartColor: r.ChartColor,
			StartYear:  region.MinYear,
			EndYear:    region.MaxYear,
			Loading:    true,
		}
		s.tracker.Track(s.id, narrate.EventSeriesLoaded, map[string]any{"region": string(r.ID)})
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		var g errgroup.Group
		g.SetLimit(seriesConcurrency)
		for i, r := range regions {
			g.Go(func() error {
				pts, err := s.adapter.Fetch(ctx, r.ID, r.Index, region.MinYear, region.MaxYear)
				s.settle(gen, i, pts, err)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return nil
}

// settle applies one region's result if its Load is still current.
func (s *SeriesSession) settle(gen uint64, i int, pts []timeseries.Point, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		return
	}

	card := &s.cards[i]
	card.Loading = false
	if err != nil {
		card.Points = nil
		card.Gaps = nil
		card.Error = timeseries.Message(err)
		s.logger.Warn("time series failed",
			slog.String("region", string(card.Region)),
			slog.String("error", err.Error()),
		)
		return
	}
	card.Points = pts
	card.Gaps = timeseries.Gaps(pts)
	card.Error = ""
}

// Snapshot implements Session.
func (s *SeriesSession) Snapshot() any {
	return s.SeriesSnapshot()
}

// SeriesSnapshot returns the current view state.
func (s *SeriesSession) SeriesSnapshot() SeriesSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]SeriesCard, len(s.cards))
	copy(cards, s.cards)
	return SeriesSnapshot{ID: s.id, Kind: KindSeries, Cards: cards}
}

// Wait blocks until every issued load has settled or been dropped.
func (s *SeriesSession) Wait() {
	s.inflight.Wait()
}

// Close implements Session.
func (s *SeriesSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
