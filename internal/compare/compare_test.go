package compare

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
)

// mockFetcher answers by year.
type mockFetcher struct {
	mu      sync.Mutex
	results map[int]*imagery.ImageDescriptor
	errors  map[int]error
	keys    []imagery.FetchKey
}

func (m *mockFetcher) GetImage(_ context.Context, key imagery.FetchKey) (*imagery.ImageDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	if err := m.errors[key.Year]; err != nil {
		return nil, err
	}
	return m.results[key.Year], nil
}

func newTestSlider(f imagery.Fetcher, lock ScrollLock) *Slider {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSlider(f, region.Default(), lock).WithLogger(logger)
}

func img(url string) *imagery.ImageDescriptor {
	return &imagery.ImageDescriptor{ImageURL: url}
}

func TestSlider_PairLoads(t *testing.T) {
	f := &mockFetcher{results: map[int]*imagery.ImageDescriptor{1990: img("a.png"), 2025: img("b.png")}}
	s := newTestSlider(f, nil)
	defer s.Close()

	if err := s.Load(Request{Region: region.Alaska, YearA: DefaultYearA, YearB: DefaultYearB}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !s.State().Loading {
		t.Error("Expected loading state right after Load")
	}
	s.Wait()

	st := s.State()
	if st.Loading || st.Error != "" {
		t.Fatalf("Expected settled pair, got %+v", st)
	}
	if st.Images.A.ImageURL != "a.png" || st.Images.B.ImageURL != "b.png" {
		t.Errorf("Unexpected images %+v", st.Images)
	}

	for _, k := range f.keys {
		if k.Index != region.NDSI || k.Tier != "" {
			t.Errorf("Unexpected key %+v", k)
		}
	}
}

func TestSlider_YearBApology(t *testing.T) {
	f := &mockFetcher{
		results: map[int]*imagery.ImageDescriptor{1990: img("a.png")},
		errors: map[int]error{
			2025: &imagery.ServiceError{StatusCode: 404, Code: "true", Apology: "No cloud-free imagery"},
		},
	}
	s := newTestSlider(f, nil)
	defer s.Close()

	if err := s.Load(Request{Region: region.CDMX, YearA: 1990, YearB: 2025}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Wait()

	st := s.State()
	if st.Error != "No cloud-free imagery" {
		t.Errorf("Expected apology, got %q", st.Error)
	}
	if st.Images.A != nil || st.Images.B != nil {
		t.Errorf("Expected no partial image state, got %+v", st.Images)
	}
}

func TestPairError(t *testing.T) {
	apologyA := &imagery.ServiceError{Apology: "no imagery for 1990"}
	apologyB := &imagery.ServiceError{Apology: "no imagery for 2025"}
	bare := &imagery.ServiceError{Code: "no_images"}
	transport := &imagery.TransportError{StatusCode: 500, Err: errors.New("boom")}
	ok := Pair{A: img("a.png"), B: img("b.png")}

	tests := []struct {
		name       string
		pair       Pair
		errA, errB error
		want       string
	}{
		{"success", ok, nil, nil, ""},
		{"both apologize prefers A", Pair{}, apologyA, apologyB, "no imagery for 1990"},
		{"B apology over A transport", Pair{}, transport, apologyB, "no imagery for 2025"},
		{"service without apology", Pair{}, bare, nil, MsgNotAvailable},
		{"transport", Pair{}, nil, transport, MsgTransportError},
		{"malformed", Pair{}, imagery.ErrMalformedResponse, nil, MsgMissingURL},
		{"missing url", Pair{A: img("a.png"), B: img("")}, nil, nil, MsgMissingURL},
		{"missing descriptor", Pair{A: img("a.png")}, nil, nil, MsgMissingURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pairError(tt.pair, tt.errA, tt.errB); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSlider_LoadValidates(t *testing.T) {
	s := newTestSlider(&mockFetcher{}, nil)
	defer s.Close()

	if err := s.Load(Request{Region: "atlantis", YearA: 1990, YearB: 2000}); !errors.Is(err, region.ErrUnknownRegion) {
		t.Errorf("Expected ErrUnknownRegion, got %v", err)
	}
	if err := s.Load(Request{Region: region.CDMX, YearA: 1989, YearB: 2000}); !errors.Is(err, region.ErrYearOutOfRange) {
		t.Errorf("Expected ErrYearOutOfRange, got %v", err)
	}
	if err := s.Load(Request{Region: region.CDMX, YearA: 1990, YearB: 2026}); !errors.Is(err, region.ErrYearOutOfRange) {
		t.Errorf("Expected ErrYearOutOfRange, got %v", err)
	}
}

// gateFetcher blocks year 1990 until released.
type gateFetcher struct {
	release chan struct{}
}

func (g *gateFetcher) GetImage(_ context.Context, key imagery.FetchKey) (*imagery.ImageDescriptor, error) {
	if key.Year == 1990 {
		<-g.release
		return img("stale.png"), nil
	}
	return img("fresh.png"), nil
}

func TestSlider_SupersededPairDropped(t *testing.T) {
	g := &gateFetcher{release: make(chan struct{})}
	s := newTestSlider(g, nil)
	defer s.Close()

	if err := s.Load(Request{Region: region.Manaos, YearA: 1990, YearB: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(Request{Region: region.Manaos, YearA: 2001, YearB: 2002}); err != nil {
		t.Fatal(err)
	}
	close(g.release)
	s.Wait()

	st := s.State()
	if st.Request.YearA != 2001 {
		t.Errorf("Expected latest request, got %+v", st.Request)
	}
	if st.Images.A == nil || st.Images.A.ImageURL != "fresh.png" {
		t.Errorf("Expected the superseded pair to be dropped, got %+v", st.Images)
	}
}

func TestSlider_CloseDropsInflight(t *testing.T) {
	g := &gateFetcher{release: make(chan struct{})}
	s := newTestSlider(g, nil)

	if err := s.Load(Request{Region: region.Manaos, YearA: 1990, YearB: 2000}); err != nil {
		t.Fatal(err)
	}
	s.Close()
	close(g.release)
	s.Wait()

	if st := s.State(); st.Images.A != nil || !st.Loading {
		t.Errorf("Expected no pair applied after close, got %+v", st)
	}
}
