package compare

import (
	"testing"
)

var container = Rect{Left: 100, Top: 0, Width: 400, Height: 300}

func TestPositionFor(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		r    Rect
		want float64
		ok   bool
	}{
		{"left edge", 100, container, 0, true},
		{"middle", 300, container, 50, true},
		{"quarter", 200, container, 25, true},
		{"right edge", 500, container, 100, true},
		{"left of container", -1e6, container, 0, true},
		{"right of container", 1e6, container, 100, true},
		{"zero width", 300, Rect{Left: 100}, 0, false},
		{"negative width", 300, Rect{Left: 100, Width: -5}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PositionFor(tt.x, tt.r)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSlider_StartsCentered(t *testing.T) {
	s := newTestSlider(&mockFetcher{}, nil)
	defer s.Close()

	st := s.SliderState()
	if st.Position != InitialPosition || st.Dragging {
		t.Errorf("Unexpected initial state %+v", st)
	}
	if clip := s.Clip(); clip.FromPercent != 50 || clip.ToPercent != 100 {
		t.Errorf("Unexpected clip %+v", clip)
	}
}

func TestSlider_MoveOnlyWhileDragging(t *testing.T) {
	s := newTestSlider(&mockFetcher{}, nil)
	defer s.Close()

	s.PointerMove(200, container)
	if got := s.SliderState().Position; got != InitialPosition {
		t.Errorf("Expected move without drag to be ignored, got %v", got)
	}

	s.DragStart()
	s.PointerMove(200, container)
	if got := s.SliderState().Position; got != 25 {
		t.Errorf("Expected 25, got %v", got)
	}

	s.TouchMove([]Touch{{ClientX: 450}, {ClientX: 120}}, container)
	if got := s.SliderState().Position; got != 87.5 {
		t.Errorf("Expected first touch to win with 87.5, got %v", got)
	}

	s.TouchMove(nil, container)
	s.PointerMove(300, Rect{Left: 100})
	if got := s.SliderState().Position; got != 87.5 {
		t.Errorf("Expected position unchanged, got %v", got)
	}

	s.PointerMove(-50, container)
	if got := s.SliderState().Position; got != 0 {
		t.Errorf("Expected clamp to 0, got %v", got)
	}
	if clip := s.Clip(); clip.FromPercent != 0 {
		t.Errorf("Expected B fully visible, got %+v", clip)
	}

	s.DragEnd()
	s.PointerMove(300, container)
	if got := s.SliderState().Position; got != 0 {
		t.Errorf("Expected move after drag end to be ignored, got %v", got)
	}
}

func TestSlider_ScrollLockReleasedOnDragEnd(t *testing.T) {
	lock := &ScrollFlag{}
	s := newTestSlider(&mockFetcher{}, lock)
	defer s.Close()

	s.DragStart()
	s.DragStart()
	if !lock.Locked() {
		t.Fatal("Expected scrolling to be suspended while dragging")
	}

	s.DragEnd()
	s.DragEnd()
	if lock.Locked() {
		t.Error("Expected scrolling to be restored")
	}
	if locks, unlocks := lock.Counts(); locks != 1 || unlocks != 1 {
		t.Errorf("Expected one lock and one unlock, got %d/%d", locks, unlocks)
	}
}

func TestSlider_ScrollLockReleasedOnPointerLeave(t *testing.T) {
	lock := &ScrollFlag{}
	s := newTestSlider(&mockFetcher{}, lock)
	defer s.Close()

	s.DragStart()
	s.PointerLeave()

	if lock.Locked() || s.SliderState().Dragging {
		t.Error("Expected pointer leave to end the drag")
	}
}

func TestSlider_ScrollLockReleasedOnClose(t *testing.T) {
	lock := &ScrollFlag{}
	s := newTestSlider(&mockFetcher{}, lock)

	s.DragStart()
	s.PointerMove(400, container)
	s.Close()
	s.Close()

	if lock.Locked() {
		t.Error("Expected close mid-drag to restore scrolling")
	}
	if locks, unlocks := lock.Counts(); locks != 1 || unlocks != 1 {
		t.Errorf("Expected one lock and one unlock, got %d/%d", locks, unlocks)
	}

	s.DragStart()
	if lock.Locked() {
		t.Error("Expected a closed slider not to take the lock again")
	}
}
