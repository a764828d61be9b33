package narrate

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rkm/terratales/internal/region"
)

func TestForRegion(t *testing.T) {
	tests := []struct {
		id   region.ID
		want string
	}{
		{region.Alaska, "Alaska"},
		{region.Manaos, "Manaus"},
		{region.CDMX, "Mexico City"},
	}

	catalog := region.Default()
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			r, err := catalog.Lookup(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			u := ForRegion(r)
			if u.Text != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, u.Text)
			}
			if u.Lang != "en-US" || u.Rate != 0.9 || u.Pitch != 1 || u.Volume != 1 {
				t.Errorf("Unexpected voice settings %+v", u)
			}
		})
	}
}

func TestRecorder_KeepsLatest(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(slog.New(slog.NewTextHandler(&buf, nil)))

	if rec.Last() != nil {
		t.Fatal("Expected no announcement yet")
	}

	rec.Say(context.Background(), Utterance{Text: "Alaska"})
	rec.Say(context.Background(), Utterance{Text: "Mexico City"})

	if last := rec.Last(); last == nil || last.Text != "Mexico City" {
		t.Errorf("Expected latest announcement, got %+v", last)
	}
	if rec.Count() != 2 {
		t.Errorf("Expected 2 announcements, got %d", rec.Count())
	}
	if !strings.Contains(buf.String(), "Mexico City") {
		t.Errorf("Expected announcement to be logged, got %q", buf.String())
	}

	rec.Clear()
	if rec.Last() != nil {
		t.Error("Expected cleared announcement")
	}
}

func TestLogTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLogTracker(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tr.Track("session-1", EventRegionSelected, map[string]any{"region": "cdmx"})
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "event=region_selected") || !strings.Contains(out, "region=cdmx") {
		t.Errorf("Unexpected log output %q", out)
	}
}

func TestNopTracker(t *testing.T) {
	var tr Tracker = NopTracker{}
	tr.Track("x", EventYearChanged, nil)
	if err := tr.Close(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
