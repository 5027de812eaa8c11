package camera

import (
	"testing"
	"time"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/render"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var italy = geo.Bounds{MinLng: 6, MinLat: 36, MaxLng: 19, MaxLat: 47}

func setup(t *testing.T) (*Scheduler, *frame.Loop, *frame.ManualClock, *render.Recorder) {
	t.Helper()
	clock := frame.NewManualClock(epoch)
	loop := frame.New(clock, 60)
	rec := &render.Recorder{}
	return New(loop, render.NewScene(rec), nil), loop, clock, rec
}

func advance(loop *frame.Loop, clock *frame.ManualClock, d time.Duration) {
	clock.Advance(d)
	loop.Tick()
}

func TestFocusFiresAfterDelay(t *testing.T) {
	s, loop, clock, rec := setup(t)
	s.ScheduleFocus(italy, true)

	advance(loop, clock, FocusDelay-time.Millisecond)
	if n := rec.Count(render.OpFitBounds, ""); n != 0 {
		t.Fatalf("camera moved before delay: %d", n)
	}
	advance(loop, clock, time.Millisecond)

	moves := rec.Filter(render.OpFitBounds)
	if len(moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(moves))
	}
	cam := moves[0].Camera
	if cam.Padding != 80 || cam.MaxZoom != 5 || cam.Pitch != FocusPitch || cam.Duration != FocusDuration {
		t.Errorf("unexpected solo framing %+v", cam)
	}
	if *moves[0].Bounds != italy {
		t.Errorf("expected bounds %+v, got %+v", italy, *moves[0].Bounds)
	}
	if s.Pending() {
		t.Error("expected no pending move after firing")
	}
}

func TestMultiFocusFraming(t *testing.T) {
	s, loop, clock, rec := setup(t)
	s.ScheduleFocus(italy, false)
	advance(loop, clock, FocusDelay)

	cam := rec.Filter(render.OpFitBounds)[0].Camera
	if cam.Padding != 120 || cam.MaxZoom != 4 {
		t.Errorf("unexpected multi framing %+v", cam)
	}
}

func TestLastRequestWins(t *testing.T) {
	s, loop, clock, rec := setup(t)
	gaul := geo.Bounds{MinLng: -5, MinLat: 42, MaxLng: 8, MaxLat: 51}

	s.ScheduleFocus(italy, true)
	advance(loop, clock, 500*time.Millisecond)
	s.ScheduleFocus(gaul, true)
	advance(loop, clock, 500*time.Millisecond)
	if n := rec.Count(render.OpFitBounds, ""); n != 0 {
		t.Fatalf("superseded move fired: %d", n)
	}
	advance(loop, clock, 300*time.Millisecond)

	moves := rec.Filter(render.OpFitBounds)
	if len(moves) != 1 || *moves[0].Bounds != gaul {
		t.Fatalf("expected a single move to the newer bounds, got %+v", moves)
	}
}

func TestCooldownDropsSecondMove(t *testing.T) {
	s, loop, clock, rec := setup(t)
	s.ScheduleFocus(italy, true)
	advance(loop, clock, FocusDelay)

	// Executes 1000ms after the first move, inside the cooldown.
	advance(loop, clock, 200*time.Millisecond)
	s.ScheduleFocus(italy, false)
	advance(loop, clock, FocusDelay)
	if n := rec.Count(render.OpFitBounds, ""); n != 1 {
		t.Fatalf("expected exactly one move within cooldown, got %d", n)
	}

	// Dropped moves are not retried.
	advance(loop, clock, 5*time.Second)
	if n := rec.Count(render.OpFitBounds, ""); n != 1 {
		t.Errorf("dropped move was rescheduled: %d", n)
	}

	s.ScheduleFocus(italy, false)
	advance(loop, clock, FocusDelay)
	if n := rec.Count(render.OpFitBounds, ""); n != 2 {
		t.Errorf("expected move after cooldown, got %d", n)
	}
}

func TestGlobalResetOncePerEmptyPeriod(t *testing.T) {
	s, loop, clock, rec := setup(t)

	s.ScheduleGlobalReset()
	advance(loop, clock, WithdrawalDelay)
	moves := rec.Filter(render.OpFitBounds)
	if len(moves) != 1 {
		t.Fatalf("expected one reset, got %d", len(moves))
	}
	if *moves[0].Bounds != GlobalBounds || moves[0].Camera.Padding != 200 || moves[0].Camera.Duration != ResetDuration {
		t.Errorf("unexpected reset move %+v", moves[0])
	}

	s.ScheduleGlobalReset()
	if s.Pending() {
		t.Error("expected repeated reset to be ignored")
	}

	advance(loop, clock, 3*time.Second)
	s.ScheduleFocus(italy, true)
	advance(loop, clock, FocusDelay)
	s.ScheduleGlobalReset()
	if !s.Pending() {
		t.Error("expected reset to be allowed again after a focus")
	}
}

func TestResetFlagSetEvenWhenCooledDown(t *testing.T) {
	s, loop, clock, rec := setup(t)
	s.ScheduleFocus(italy, true)
	advance(loop, clock, FocusDelay)

	s.ScheduleGlobalReset()
	advance(loop, clock, WithdrawalDelay)
	if n := rec.Count(render.OpFitBounds, ""); n != 1 {
		t.Fatalf("expected reset dropped by cooldown, got %d moves", n)
	}
	s.ScheduleGlobalReset()
	if s.Pending() {
		t.Error("expected reset guard set even though the move was dropped")
	}
}

func TestDisposeCancelsPending(t *testing.T) {
	s, loop, clock, rec := setup(t)
	s.ScheduleFocus(italy, true)
	s.Dispose()
	advance(loop, clock, 2*FocusDelay)
	if n := rec.Count(render.OpFitBounds, ""); n != 0 {
		t.Errorf("move fired after dispose: %d", n)
	}
	s.ScheduleGlobalReset()
	if s.Pending() {
		t.Error("expected schedule after dispose to be ignored")
	}
}
