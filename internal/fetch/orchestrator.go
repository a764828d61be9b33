// Package fetch coordinates image requests for one view slot. Each request is
// stamped with a generation; only the response of the latest generation is ever
// applied, whatever order responses arrive in.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
)

// User-facing error messages.
const (
	MsgServiceError   = "An error occurred while fetching the image."
	MsgTransportError = "Failed to load satellite image"
	MsgMalformed      = "The imagery service returned an incomplete response."
)

// Selection is the single-view user selection. An empty Region means nothing is
// selected.
type Selection struct {
	Region region.ID `json:"region"`
	Year   int       `json:"year"`
}

// Complete reports whether the selection names a region.
func (s Selection) Complete() bool {
	return s.Region != ""
}

// State is what the presentation layer renders.
type State struct {
	Key     imagery.FetchKey         `json:"-"`
	Data    *imagery.ImageDescriptor `json:"data"`
	Loading bool                     `json:"loading"`
	Error   string                   `json:"error,omitempty"`
}

// Orchestrator turns selection and tier changes into image requests.
type Orchestrator struct {
	mu        sync.Mutex
	fetcher   imagery.Fetcher
	catalog   *region.Catalog
	logger    *slog.Logger
	state     State
	gen       uint64
	settled   bool // the current key has a settled outcome
	cancel    context.CancelFunc
	listeners []func(State)
	closed    bool
	inflight  sync.WaitGroup
}

// New creates an Orchestrator.
func New(fetcher imagery.Fetcher, catalog *region.Catalog) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		catalog: catalog,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the orchestrator
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// OnChange registers a listener called after every applied state transition.
// Listeners run with the orchestrator locked and must not call back into it.
func (o *Orchestrator) OnChange(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generation returns the generation of the most recently issued request.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// OnSelectionOrTierChanged starts a fetch for the key derived from sel and tier.
// A key equal to the in-flight or successfully settled one is a duplicate and is
// not re-issued.
func (o *Orchestrator) OnSelectionOrTierChanged(sel Selection, tier scale.Tier) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	if !sel.Complete() {
		o.supersede()
		o.state = State{}
		o.notify()
		return
	}

	index, err := o.catalog.IndexFor(sel.Region)
	if err != nil {
		o.supersede()
		o.state = State{Error: err.Error()}
		o.notify()
		return
	}

	key := imagery.FetchKey{Region: sel.Region, Year: sel.Year, Index: index, Tier: tier}
	if o.gen > 0 && key == o.state.Key && (o.state.Loading || (o.settled && o.state.Error == "")) {
		o.logger.Debug("duplicate fetch key ignored", slog.String("key", key.String()))
		return
	}

	o.supersede()
	gen := o.gen
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.state.Key = key
	o.state.Loading = true
	o.state.Error = ""
	o.settled = false
	o.notify()

	o.logger.Debug("fetching image",
		slog.String("key", key.String()),
		slog.Uint64("generation", gen),
	)

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		d, err := o.fetcher.GetImage(ctx, key)
		o.settle(gen, key, d, err)
	}()
}

// supersede invalidates the in-flight request. Caller holds mu.
func (o *Orchestrator) supersede() {
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// settle applies a response if it belongs to the latest generation.
func (o *Orchestrator) settle(gen uint64, key imagery.FetchKey, d *imagery.ImageDescriptor, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen || o.closed {
		o.logger.Debug("stale image response dropped",
			slog.String("key", key.String()),
			slog.Uint64("generation", gen),
			slog.Uint64("latest", o.gen),
		)
		return
	}

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state.Loading = false
	o.settled = true

	if err != nil {
		o.state.Data = nil
		o.state.Error = errorMessage(err)
		o.logger.Warn("image fetch failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
	} else {
		o.state.Data = d
		o.state.Error = ""
	}

	o.notify()
}

// notify calls listeners with the current state. Caller holds mu.
func (o *Orchestrator) notify() {
	for _, fn := range o.listeners {
		fn(o.state)
	}
}

// Wait blocks until every issued request has settled or been dropped.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Close cancels the in-flight request; later responses are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	o.supersede()
}

// errorMessage converts a fetch error into the message shown to the user,
// preferring the service's own explanation.
func errorMessage(err error) string {
	if msg := imagery.Explanation(err); msg != "" {
		return msg
	}
	switch {
	case imagery.IsServiceError(err):
		return MsgServiceError
	case errors.Is(err, imagery.ErrMalformedResponse):
		return MsgMalformed
	default:
		return MsgTransportError
	}
}
