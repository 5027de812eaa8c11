// Package engrave reveals a focused entity's name as if cut into the
// terrain: a low-opacity label with a strong halo fades in, holds, then
// dissolves. Only one label exists at a time.
package engrave

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/ease"
	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/render"
)

const (
	SourceID = "engrave-label-source"
	LayerID  = "engrave-label-layer"

	FadeInDuration  = 800 * time.Millisecond
	HoldDuration    = 2000 * time.Millisecond
	FadeOutDuration = 1200 * time.Millisecond

	// StartDelay matches the camera focus delay so the label appears while
	// the viewport settles on the target.
	StartDelay = 800 * time.Millisecond

	OpacityPeak   = 0.35
	HaloWidthPeak = 3.5
	HaloWidthEnd  = 1.0
	HaloBlurStart = 1.0
	HaloBlurPeak  = 0.5

	TextColor = "#e8e4d8"
	HaloColor = "rgba(0,0,0,0.85)"
	TextSize  = 29
)

const (
	propOpacity   = "text-opacity"
	propHaloWidth = "text-halo-width"
	propHaloBlur  = "text-halo-blur"
)

// Phase is the effect's state.
type Phase int

const (
	Idle Phase = iota
	FadeIn
	Hold
	FadeOut
	Cancelling
)

var phaseNames = [...]string{"idle", "fade-in", "hold", "fade-out", "cancelling"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Target is the entity whose name is engraved.
type Target struct {
	ID       string
	Name     string
	Centroid geo.Position
}

// Effect runs the engrave animation. Methods must run on the loop goroutine.
type Effect struct {
	loop    *frame.Loop
	surface render.Surface
	log     *zap.Logger

	phase      Phase
	phaseStart time.Time
	target     *Target

	startTimer *frame.Timer
	track      *frame.Track
	disposed   bool
}

// New returns an idle effect drawing on surface.
func New(loop *frame.Loop, surface render.Surface, log *zap.Logger) *Effect {
	if log == nil {
		log = zap.NewNop()
	}
	return &Effect{loop: loop, surface: surface, log: log}
}

// ScheduleStart tears down any pending or running engrave and starts a new
// one for t after delay.
func (e *Effect) ScheduleStart(t Target, delay time.Duration) {
	if e.disposed {
		return
	}
	e.cancelPending()
	e.Stop()
	e.startTimer = e.loop.After(delay, func() {
		e.startTimer = nil
		if e.disposed {
			return
		}
		e.start(t)
	})
}

// Stop cancels a pending start and any running animation and removes the
// label. Safe in any phase.
func (e *Effect) Stop() {
	e.cancelPending()
	e.track.Cancel()
	e.track = nil
	if e.phase != Idle {
		e.phase = Cancelling
		e.log.Debug("engrave cancelled", zap.String("id", e.targetID()))
	}
	e.teardown()
}

// Dispose stops the effect for good.
func (e *Effect) Dispose() {
	e.disposed = true
	e.Stop()
}

// Phase returns the current phase.
func (e *Effect) Phase() Phase { return e.phase }

// Target returns the engraved entity, if any.
func (e *Effect) Target() (Target, bool) {
	if e.target == nil {
		return Target{}, false
	}
	return *e.target, true
}

// Pending reports whether a start is scheduled but not yet begun.
func (e *Effect) Pending() bool { return e.startTimer.Pending() }

func (e *Effect) cancelPending() {
	if e.startTimer != nil {
		e.startTimer.Stop()
		e.startTimer = nil
	}
}

func (e *Effect) teardown() {
	render.RemoveLayers(e.surface, LayerID)
	render.RemoveSource(e.surface, SourceID)
	e.phase = Idle
	e.target = nil
}

func (e *Effect) targetID() string {
	if e.target == nil {
		return ""
	}
	return e.target.ID
}

func (e *Effect) start(t Target) {
	e.teardown()

	label := strings.ToUpper(t.Name)
	data := geo.NewCollection(geo.NewFeature(geo.PointGeometry(t.Centroid), map[string]any{"name": label}))
	if err := e.surface.AddSource(SourceID, data); err != nil {
		e.log.Debug("engrave source", zap.Error(err))
		return
	}
	err := e.surface.AddLayer(render.Layer{
		ID:     LayerID,
		Kind:   render.KindSymbol,
		Source: SourceID,
		Layout: map[string]any{
			"text-field":            []any{"get", "name"},
			"text-transform":        "uppercase",
			"text-size":             TextSize,
			"text-letter-spacing":   0.08,
			"text-anchor":           "center",
			"text-pitch-alignment":  "map",
			"text-allow-overlap":    true,
			"text-ignore-placement": true,
		},
		Paint: map[string]any{
			"text-color":      TextColor,
			propOpacity:       0.0,
			"text-halo-color": HaloColor,
			propHaloWidth:     0.0,
			propHaloBlur:      HaloBlurStart,
		},
	})
	if err != nil {
		render.RemoveSource(e.surface, SourceID)
		e.log.Debug("engrave layer", zap.Error(err))
		return
	}

	e.target = &t
	e.phase = FadeIn
	e.phaseStart = e.loop.Now()
	e.track = e.loop.Start("engrave", e.step)
	e.log.Debug("engrave started", zap.String("id", t.ID), zap.String("label", label))
}

func (e *Effect) step(now time.Time) bool {
	if e.disposed || e.phase == Idle || e.phase == Cancelling {
		return false
	}
	if !e.surface.HasLayer(LayerID) {
		// Removed underneath us; nothing left to animate.
		e.teardown()
		return false
	}
	elapsed := float64(now.Sub(e.phaseStart))

	switch e.phase {
	case FadeIn:
		p := ease.Progress(elapsed, float64(FadeInDuration))
		s := ease.OutQuad(p)
		e.paint(propOpacity, ease.Lerp(0, OpacityPeak, s))
		e.paint(propHaloWidth, ease.Lerp(0, HaloWidthPeak, s))
		e.paint(propHaloBlur, ease.Lerp(HaloBlurStart, HaloBlurPeak, s))
		if p >= 1 {
			e.enter(Hold, now)
		}
	case Hold:
		if elapsed >= float64(HoldDuration) {
			e.enter(FadeOut, now)
		}
	case FadeOut:
		p := ease.Progress(elapsed, float64(FadeOutDuration))
		s := ease.OutQuad(p)
		e.paint(propOpacity, ease.Lerp(OpacityPeak, 0, s))
		e.paint(propHaloWidth, ease.Lerp(HaloWidthPeak, HaloWidthEnd, s))
		if p >= 1 {
			e.log.Debug("engrave finished", zap.String("id", e.targetID()))
			e.teardown()
			e.track = nil
			return false
		}
	}
	return true
}

func (e *Effect) enter(p Phase, now time.Time) {
	e.phase = p
	e.phaseStart = now
}

func (e *Effect) paint(prop string, v float64) {
	render.Paint(e.surface, LayerID, prop, v)
}
