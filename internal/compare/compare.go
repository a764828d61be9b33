package compare

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
)

// Default comparison years.
const (
	DefaultYearA = 1990
	DefaultYearB = 2025
)

// User-facing error messages.
const (
	MsgNotAvailable   = "Images not available for one or both dates."
	MsgMissingURL     = "Image URLs not found in the response"
	MsgTransportError = "Failed to load satellite images"
)

// Request selects the pair of images to compare.
type Request struct {
	Region region.ID `json:"region"`
	YearA  int       `json:"yearA"`
	YearB  int       `json:"yearB"`
}

// Pair holds the two images of a settled comparison.
type Pair struct {
	A *imagery.ImageDescriptor `json:"a"`
	B *imagery.ImageDescriptor `json:"b"`
}

// State is what the presentation layer renders.
type State struct {
	Request Request     `json:"request"`
	Images  Pair        `json:"images"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
	Slider  SliderState `json:"slider"`
	Clip    ClipRect    `json:"clip"`
}

// Slider owns the drag state, the scroll lock and the paired image fetch of one
// comparison view.
type Slider struct {
	mu         sync.Mutex
	fetcher    imagery.Fetcher
	catalog    *region.Catalog
	scroll     ScrollLock
	scrollHeld bool
	slider     SliderState
	req        Request
	images     Pair
	loading    bool
	errMsg     string
	gen        uint64
	cancel     context.CancelFunc
	closed     bool
	inflight   sync.WaitGroup
	logger     *slog.Logger
}

// NewSlider creates a slider at the initial position. scroll may be nil.
func NewSlider(fetcher imagery.Fetcher, catalog *region.Catalog, scroll ScrollLock) *Slider {
	return &Slider{
		fetcher: fetcher,
		catalog: catalog,
		scroll:  scroll,
		slider:  SliderState{Position: InitialPosition},
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the slider
func (s *Slider) WithLogger(logger *slog.Logger) *Slider {
	s.logger = logger
	return s
}

// Load fetches both images of req. The slider is loading until both settle; a
// newer Load supersedes any pair still in flight.
func (s *Slider) Load(req Request) error {
	index, err := s.catalog.IndexFor(req.Region)
	if err != nil {
		return err
	}
	if err := region.ValidateYear(req.YearA); err != nil {
		return err
	}
	if err := region.ValidateYear(req.YearB); err != nil {
		return err
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

	s.req = req
	s.images = Pair{}
	s.loading = true
	s.errMsg = ""

	keyA := imagery.FetchKey{Region: req.Region, Year: req.YearA, Index: index}
	keyB := imagery.FetchKey{Region: req.Region, Year: req.YearB, Index: index}

	s.logger.Debug("fetching comparison pair",
		slog.String("a", keyA.String()),
		slog.String("b", keyB.String()),
		slog.Uint64("generation", gen),
	)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		var pair Pair
		var errA, errB error
		var g errgroup.Group
		g.Go(func() error {
			pair.A, errA = s.fetcher.GetImage(ctx, keyA)
			return errA
		})
		g.Go(func() error {
			pair.B, errB = s.fetcher.GetImage(ctx, keyB)
			return errB
		})
		_ = g.Wait()

		s.settle(gen, pair, errA, errB)
	}()

	return nil
}

// settle applies a pair if it belongs to the latest Load.
func (s *Slider) settle(gen uint64, pair Pair, errA, errB error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		s.logger.Debug("stale comparison pair dropped", slog.Uint64("generation", gen))
		return
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false

	if msg := pairError(pair, errA, errB); msg != "" {
		s.images = Pair{}
		s.errMsg = msg
		s.logger.Warn("comparison fetch failed",
			slog.String("region", string(s.req.Region)),
			slog.Int("year_a", s.req.YearA),
			slog.Int("year_b", s.req.YearB),
			slog.String("error", msg),
		)
		return
	}

	s.images = pair
	s.errMsg = ""
}

// pairError returns the message shown for a failed pair, or "" on success. A
// service explanation from A wins over one from B.
func pairError(pair Pair, errA, errB error) string {
	if errA == nil && errB == nil {
		if pair.A == nil || pair.B == nil || pair.A.ImageURL == "" || pair.B.ImageURL == "" {
			return MsgMissingURL
		}
		return ""
	}

	if msg := imagery.Explanation(errA); msg != "" {
		return msg
	}
	if msg := imagery.Explanation(errB); msg != "" {
		return msg
	}

	switch {
	case imagery.IsServiceError(errA) || imagery.IsServiceError(errB):
		return MsgNotAvailable
	case errors.Is(errA, imagery.ErrMalformedResponse) || errors.Is(errB, imagery.ErrMalformedResponse):
		return MsgMissingURL
	default:
		return MsgTransportError
	}
}

// State returns a snapshot of the comparison view.
func (s *Slider) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Request: s.req,
		Images:  s.images,
		Loading: s.loading,
		Error:   s.errMsg,
		Slider:  s.slider,
		Clip:    ClipFor(s.slider.Position),
	}
}

// Wait blocks until every issued pair has settled or been dropped.
func (s *Slider) Wait() {
	s.inflight.Wait()
}

// Close ends any drag, restores scrolling and drops pairs still in flight.
func (s *Slider) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.slider.Dragging = false
	s.releaseScroll()

	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
