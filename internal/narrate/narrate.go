// Package narrate announces region selections and records viewer telemetry.
package narrate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rkm/terratales/internal/region"
)

// Utterance is one spoken announcement. The browser front-end plays it with the
// Web Speech API.
type Utterance struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// ForRegion returns the announcement played when r is selected.
func ForRegion(r *region.Region) Utterance {
	return Utterance{
		Text:   r.SpokenName,
		Lang:   "en-US",
		Rate:   0.9,
		Pitch:  1.0,
		Volume: 1.0,
	}
}

// Narrator speaks announcements. A new announcement cuts off the previous one.
type Narrator interface {
	Say(ctx context.Context, u Utterance)
}

// Recorder keeps the most recent announcement so it can be replayed by a client.
type Recorder struct {
	mu     sync.Mutex
	last   *Utterance
	count  int
	logger *slog.Logger
}

// NewRecorder creates a Recorder that also logs every announcement.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// Say implements Narrator.
func (r *Recorder) Say(ctx context.Context, u Utterance) {
	r.mu.Lock()
	r.last = &u
	r.count++
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "announcing region", slog.String("text", u.Text))
}

// Last returns the latest announcement, or nil.
func (r *Recorder) Last() *Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	u := *r.last
	return &u
}

// Count returns how many announcements were made.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Clear forgets the latest announcement.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = nil
}
