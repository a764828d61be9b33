package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_FiresAfterQuietPeriod(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(500*time.Millisecond, clock)

	var calls int
	d.Trigger(func() { calls++ })

	clock.Advance(499 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("callback fired before the quiet period elapsed")
	}
	if !d.Pending() {
		t.Error("expected a pending callback")
	}

	clock.Advance(time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if d.Pending() {
		t.Error("expected no pending callback after firing")
	}
}

func TestDebouncer_TriggerReplacesPending(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(500*time.Millisecond, clock)

	var got []string
	d.Trigger(func() { got = append(got, "first") })
	clock.Advance(300 * time.Millisecond)
	d.Trigger(func() { got = append(got, "second") })

	// 600ms after the first trigger, 300ms after the second
	clock.Advance(300 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("expected nothing to fire yet, got %v", got)
	}

	clock.Advance(200 * time.Millisecond)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the last callback, got %v", got)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no scheduled timers, got %d", clock.Pending())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(500*time.Millisecond, clock)

	if d.Cancel() {
		t.Error("Cancel with nothing pending should report false")
	}

	var calls int
	d.Trigger(func() { calls++ })
	if !d.Cancel() {
		t.Error("Cancel should report a pending callback")
	}

	clock.Advance(time.Second)
	if calls != 0 {
		t.Errorf("cancelled callback fired")
	}
}

func TestDebouncer_RealClock(t *testing.T) {
	d := New(20*time.Millisecond, nil)

	var calls atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			calls.Add(1)
			close(done)
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected exactly one call, got %d", calls.Load())
	}
}

func TestManualClock_StopAfterFire(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })
	clock.Advance(time.Second)

	if !fired {
		t.Fatal("expected timer to fire")
	}
	if timer.Stop() {
		t.Error("Stop after firing should report false")
	}
	if !clock.Now().Equal(time.Unix(1, 0)) {
		t.Errorf("unexpected clock time %v", clock.Now())
	}
}
