// Package camera decides when and where the viewport reframes.
//
// Every request is deferred so entry fades settle first, a newer request
// replaces a pending one, and a cooldown measured at execution time drops
// moves that would follow the previous one too closely.
package camera

import (
	"time"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/render"
)

const (
	FocusDelay      = 800 * time.Millisecond
	WithdrawalDelay = 900 * time.Millisecond
	Cooldown        = 2000 * time.Millisecond

	FocusDuration = 1600 * time.Millisecond
	ResetDuration = 2400 * time.Millisecond
	FocusPitch    = 40
	Easing        = "easeOutQuad"
)

// GlobalBounds frames the whole inhabited world.
var GlobalBounds = geo.Bounds{MinLng: -170, MinLat: -60, MaxLng: 170, MaxLat: 70}

// FocusOptions returns the framing used for a solo or multi-entity focus.
func FocusOptions(solo bool) render.CameraOptions {
	o := render.CameraOptions{
		Padding:  120,
		MaxZoom:  4,
		Pitch:    FocusPitch,
		Duration: FocusDuration,
		Easing:   Easing,
	}
	if solo {
		o.Padding = 80
		o.MaxZoom = 5
	}
	return o
}

// ResetOptions returns the framing used when withdrawing to GlobalBounds.
func ResetOptions() render.CameraOptions {
	return render.CameraOptions{
		Padding:  200,
		Pitch:    0,
		Duration: ResetDuration,
		Easing:   Easing,
	}
}

// Scheduler serialises camera moves through a single pending timer.
// Methods must run on the loop goroutine.
type Scheduler struct {
	loop    *frame.Loop
	surface render.Surface
	log     *zap.Logger

	pending  *frame.Timer
	lastMove time.Time
	moved    bool

	resetSinceEmpty bool
	disposed        bool
}

// New returns a scheduler moving surface's viewport. A nil logger is
// replaced by a no-op one.
func New(loop *frame.Loop, surface render.Surface, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{loop: loop, surface: surface, log: log}
}

// ScheduleFocus replaces any pending move with a focus on b after
// FocusDelay.
func (s *Scheduler) ScheduleFocus(b geo.Bounds, solo bool) {
	if s.disposed {
		return
	}
	s.resetSinceEmpty = false
	s.cancelPending()
	opts := FocusOptions(solo)
	s.pending = s.loop.After(FocusDelay, func() {
		s.pending = nil
		s.execute("focus", b, opts)
	})
}

// ScheduleGlobalReset withdraws to GlobalBounds after WithdrawalDelay. It
// does nothing if a reset already fired since the last focus.
func (s *Scheduler) ScheduleGlobalReset() {
	if s.disposed || s.resetSinceEmpty {
		return
	}
	s.cancelPending()
	s.pending = s.loop.After(WithdrawalDelay, func() {
		s.pending = nil
		s.resetSinceEmpty = true
		s.execute("reset", GlobalBounds, ResetOptions())
	})
}

// Pending reports whether a move is waiting to fire.
func (s *Scheduler) Pending() bool { return s.pending.Pending() }

// LastMove returns when the last move executed.
func (s *Scheduler) LastMove() (time.Time, bool) { return s.lastMove, s.moved }

// Dispose cancels any pending move. Later calls are no-ops.
func (s *Scheduler) Dispose() {
	s.disposed = true
	s.cancelPending()
}

func (s *Scheduler) cancelPending() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Scheduler) execute(kind string, b geo.Bounds, opts render.CameraOptions) {
	now := s.loop.Now()
	if s.moved && now.Sub(s.lastMove) < Cooldown {
		s.log.Debug("camera move dropped by cooldown",
			zap.String("kind", kind),
			zap.Duration("since_last", now.Sub(s.lastMove)))
		return
	}
	if err := s.surface.FitBounds(b, opts); err != nil {
		s.log.Debug("camera move failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	s.lastMove = now
	s.moved = true
	s.log.Debug("camera moved", zap.String("kind", kind), zap.Any("bounds", b))
}
