// Package frame runs every time-driven animation on one cooperative loop.
//
// Each frame the loop runs posted work, fires due timers and steps the
// registered tracks, all on a single goroutine. Loop methods other than Post
// must only be called from that goroutine (inside posted work, timer
// callbacks or track steps) once Run has started. Tests drive the loop by
// calling Tick directly against a ManualClock.
package frame

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultFrameRate is used when New is given a non-positive rate.
const DefaultFrameRate = 60

// Track is a named timeline stepped once per frame until its step function
// returns false or it is cancelled.
type Track struct {
	name string
	step func(now time.Time) bool
	done bool
}

// Name returns the track name given to Start.
func (t *Track) Name() string { return t.name }

// Cancel removes the track before its next step.
func (t *Track) Cancel() {
	if t != nil {
		t.done = true
	}
}

// Active reports whether the track will be stepped again.
func (t *Track) Active() bool { return t != nil && !t.done }

// Timer is a one-shot callback fired inside Tick once its deadline passes.
type Timer struct {
	deadline time.Time
	seq      uint64
	fn       func()
	stopped  bool
	fired    bool
}

// Stop cancels the timer. It returns false if the timer already fired or was
// stopped. A stopped timer never fires: firing and stopping both happen on
// the loop goroutine.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending reports whether the timer is still waiting to fire.
func (t *Timer) Pending() bool { return t != nil && !t.stopped && !t.fired }

// Deadline returns the time the timer fires at.
func (t *Timer) Deadline() time.Time { return t.deadline }

// Loop owns the tracks and timers of one view.
type Loop struct {
	clock    Clock
	interval time.Duration

	mu     sync.Mutex
	inbox  []func()
	closed bool
	wake   chan struct{}

	tracks []*Track
	timers []*Timer
	seq    uint64
	frames uint64
}

// New creates a loop reading time from clock and pacing Run at frameRate
// frames per second.
func New(clock Clock, frameRate int) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &Loop{
		clock:    clock,
		interval: time.Second / time.Duration(frameRate),
		wake:     make(chan struct{}, 1),
	}
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// Frames returns the number of ticks run so far.
func (l *Loop) Frames() uint64 { return l.frames }

// Start registers a track. It is first stepped on the next tick (or later in
// the current tick when started from a timer callback).
func (l *Loop) Start(name string, step func(now time.Time) bool) *Track {
	t := &Track{name: name, step: step}
	if l.isClosed() {
		t.done = true
		return t
	}
	l.tracks = append(l.tracks, t)
	l.signal()
	return t
}

// After schedules fn to run on the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	l.seq++
	t := &Timer{deadline: l.clock.Now().Add(d), seq: l.seq, fn: fn}
	if l.isClosed() {
		t.stopped = true
		return t
	}
	l.timers = append(l.timers, t)
	l.signal()
	return t
}

// Post queues fn to run at the start of the next tick. Safe for use from any
// goroutine. Work posted after Close is dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
	l.signal()
}

// Busy reports whether any track or timer is pending.
func (l *Loop) Busy() bool {
	return l.liveTracks() > 0 || l.pendingTimers() > 0
}

// Tick runs one frame: posted work, then due timers in deadline order, then
// every live track in start order.
func (l *Loop) Tick() {
	now := l.clock.Now()
	l.frames++

	l.mu.Lock()
	work := l.inbox
	l.inbox = nil
	l.mu.Unlock()
	for _, fn := range work {
		fn()
	}

	l.fireTimers(now)
	l.stepTracks(now)
}

func (l *Loop) fireTimers(now time.Time) {
	var due []*Timer
	for _, t := range l.timers {
		if t.Pending() && !t.deadline.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].seq < due[j].seq
		}
		return due[i].deadline.Before(due[j].deadline)
	})

	for _, t := range due {
		// An earlier callback in this frame may have stopped it.
		if !t.Pending() {
			continue
		}
		t.fired = true
		t.fn()
	}

	kept := l.timers[:0]
	for _, t := range l.timers {
		if t.Pending() {
			kept = append(kept, t)
		}
	}
	clear(l.timers[len(kept):])
	l.timers = kept
}

func (l *Loop) stepTracks(now time.Time) {
	snapshot := append([]*Track(nil), l.tracks...)
	for _, t := range snapshot {
		if t.done {
			continue
		}
		if !t.step(now) {
			t.done = true
		}
	}

	kept := l.tracks[:0]
	for _, t := range l.tracks {
		if !t.done {
			kept = append(kept, t)
		}
	}
	clear(l.tracks[len(kept):])
	l.tracks = kept
}

// Run pumps frames until ctx is done. While tracks are live it ticks at the
// frame interval; with only timers pending it sleeps until the earliest
// deadline; with nothing to do it blocks until new work arrives.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		wait, idle := l.nextWait()

		if idle {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
			}
		} else if wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			case <-l.wake:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.Tick()
	}
}

// Close cancels every track and timer and drops posted work. Further Start
// and After calls return inert handles.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.inbox = nil
	l.mu.Unlock()

	for _, t := range l.tracks {
		t.done = true
	}
	for _, t := range l.timers {
		t.stopped = true
	}
	l.tracks = nil
	l.timers = nil
}

func (l *Loop) nextWait() (time.Duration, bool) {
	l.mu.Lock()
	queued := len(l.inbox)
	l.mu.Unlock()
	if queued > 0 {
		return 0, false
	}
	if l.liveTracks() > 0 {
		return l.interval, false
	}

	var earliest *Timer
	for _, t := range l.timers {
		if t.Pending() && (earliest == nil || t.deadline.Before(earliest.deadline)) {
			earliest = t
		}
	}
	if earliest == nil {
		return 0, true
	}
	return max(earliest.deadline.Sub(l.clock.Now()), 0), false
}

func (l *Loop) liveTracks() int {
	n := 0
	for _, t := range l.tracks {
		if !t.done {
			n++
		}
	}
	return n
}

func (l *Loop) pendingTimers() int {
	n := 0
	for _, t := range l.timers {
		if t.Pending() {
			n++
		}
	}
	return n
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
