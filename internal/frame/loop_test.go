package frame

import (
	"context"
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testLoop(t *testing.T) (*Loop, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	return New(clock, 60), clock
}

func TestTimerFiresAtDeadline(t *testing.T) {
	l, clock := testLoop(t)

	fired := 0
	l.After(800*time.Millisecond, func() { fired++ })

	clock.Advance(799 * time.Millisecond)
	l.Tick()
	if fired != 0 {
		t.Fatal("timer fired early")
	}

	clock.Advance(time.Millisecond)
	l.Tick()
	if fired != 1 {
		t.Fatalf("expected timer to fire once, fired %d", fired)
	}

	clock.Advance(time.Second)
	l.Tick()
	if fired != 1 {
		t.Errorf("timer fired again: %d", fired)
	}
	if l.Busy() {
		t.Error("expected loop idle after timer fired")
	}
}

func TestStoppedTimerNeverFires(t *testing.T) {
	l, clock := testLoop(t)

	fired := false
	tm := l.After(100*time.Millisecond, func() { fired = true })

	// Expiry and cancellation land on the same instant; cancellation wins.
	clock.Advance(100 * time.Millisecond)
	if !tm.Stop() {
		t.Fatal("expected Stop to report cancellation")
	}
	l.Tick()

	if fired {
		t.Error("stopped timer fired")
	}
	if tm.Stop() {
		t.Error("second Stop should return false")
	}
}

func TestTimerStoppedByEarlierCallbackInSameFrame(t *testing.T) {
	l, clock := testLoop(t)

	var second *Timer
	secondFired := false
	l.After(10*time.Millisecond, func() { second.Stop() })
	second = l.After(20*time.Millisecond, func() { secondFired = true })

	clock.Advance(time.Second)
	l.Tick()

	if secondFired {
		t.Error("timer stopped by an earlier callback in the same frame still fired")
	}
}

func TestTrackRemovedWhenFinished(t *testing.T) {
	l, clock := testLoop(t)

	steps := 0
	tr := l.Start("opacity", func(now time.Time) bool {
		steps++
		return steps < 3
	})

	for i := 0; i < 5; i++ {
		clock.Advance(16 * time.Millisecond)
		l.Tick()
	}

	if steps != 3 {
		t.Errorf("expected 3 steps, got %d", steps)
	}
	if tr.Active() {
		t.Error("finished track still active")
	}
	if l.Busy() {
		t.Error("expected loop to stop when no work remains")
	}
}

func TestTrackCancel(t *testing.T) {
	l, _ := testLoop(t)

	steps := 0
	tr := l.Start("pulse", func(time.Time) bool { steps++; return true })
	l.Tick()
	tr.Cancel()
	l.Tick()

	if steps != 1 {
		t.Errorf("expected cancelled track to stop stepping, got %d steps", steps)
	}
}

func TestTrackStartedByTimerStepsSameFrame(t *testing.T) {
	l, clock := testLoop(t)

	var stepAt time.Time
	l.After(50*time.Millisecond, func() {
		l.Start("engrave", func(now time.Time) bool { stepAt = now; return false })
	})

	clock.Advance(50 * time.Millisecond)
	l.Tick()

	if !stepAt.Equal(epoch.Add(50 * time.Millisecond)) {
		t.Errorf("expected track stepped in the timer's frame, got %v", stepAt)
	}
}

func TestPostRunsOnNextTick(t *testing.T) {
	l, _ := testLoop(t)

	ran := make(chan struct{})
	go l.Post(func() { close(ran) })

	// Wait for the goroutine to enqueue.
	deadline := time.Now().Add(time.Second)
	for {
		l.Tick()
		select {
		case <-ran:
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("posted work never ran")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	l, clock := testLoop(t)

	fired := false
	l.After(time.Millisecond, func() { fired = true })
	tr := l.Start("x", func(time.Time) bool { return true })
	l.Close()

	clock.Advance(time.Second)
	l.Tick()

	if fired || tr.Active() || l.Busy() {
		t.Error("expected Close to cancel timers and tracks")
	}

	if l.Start("late", func(time.Time) bool { return true }).Active() {
		t.Error("tracks started after Close must be inert")
	}
	if l.After(0, func() {}).Pending() {
		t.Error("timers scheduled after Close must be inert")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	l := New(SystemClock{}, 120)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	got := make(chan struct{})
	l.Post(func() {
		l.After(5*time.Millisecond, func() { close(got) })
	})

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timer scheduled through Post never fired under Run")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
