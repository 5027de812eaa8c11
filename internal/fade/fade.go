// Package fade animates entity layers in and out.
//
// Two tracks share the frame loop: an opacity track that interpolates each
// entity's normalised opacity toward 0 or 1, and a pulse track that bumps
// the outline width after a highlighted entry. The tracks are independent;
// fading an entity out leaves its pulse running to completion.
package fade

import (
	"math"
	"sort"
	"time"

	"github.com/intelligrit/chronomap/internal/ease"
	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/render"
)

const (
	// FillOpacityTarget is the fill opacity of a fully faded-in entity.
	FillOpacityTarget = 0.35
	// LineOpacityTarget is the outline opacity of a fully faded-in entity.
	LineOpacityTarget = 0.8
	// Duration is the default fade length.
	Duration = 400 * time.Millisecond

	HighlightDuration = 600 * time.Millisecond
	PulseDuration     = 700 * time.Millisecond
	LineWidthBase     = 2.0
	LineWidthPeak     = 5.0
)

// Paint properties written by the animator.
const (
	PropFillOpacity = "fill-opacity"
	PropLineOpacity = "line-opacity"
	PropLineWidth   = "line-width"
)

// Direction of a fade.
type Direction int

const (
	In Direction = iota + 1
	Out
)

type animation struct {
	dir        Direction
	start      time.Time
	from, to   float64
	duration   time.Duration
	easing     ease.Func
	onComplete func()
}

type pulse struct {
	start    time.Time
	duration time.Duration
}

// Option configures FadeIn.
type Option func(*options)

type options struct {
	highlight bool
}

// WithHighlight makes a fade-in overshoot its resting opacity and starts an
// outline pulse alongside it.
func WithHighlight() Option {
	return func(o *options) { o.highlight = true }
}

// Animator owns the fade and pulse state of every entity on one surface.
// All methods must run on the loop goroutine.
type Animator struct {
	loop    *frame.Loop
	surface render.Surface

	animations map[string]*animation
	opacity    map[string]float64
	pulses     map[string]*pulse

	opacityTrack *frame.Track
	pulseTrack   *frame.Track
	disposed     bool
}

// New returns an animator painting onto surface.
func New(loop *frame.Loop, surface render.Surface) *Animator {
	return &Animator{
		loop:       loop,
		surface:    surface,
		animations: make(map[string]*animation),
		opacity:    make(map[string]float64),
		pulses:     make(map[string]*pulse),
	}
}

// FadeIn starts fading id toward full opacity from wherever it currently
// is. A zero duration uses Duration. Any in-flight fade for id is replaced.
func (a *Animator) FadeIn(id string, d time.Duration, opts ...Option) {
	if a.disposed {
		return
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if d <= 0 {
		d = Duration
	}
	now := a.loop.Now()
	anim := &animation{
		dir:      In,
		start:    now,
		from:     a.current(id, 0),
		to:       1,
		duration: d,
		easing:   ease.OutCubic,
	}
	if o.highlight {
		anim.duration = HighlightDuration
		anim.easing = ease.OutBack
		a.pulses[id] = &pulse{start: now, duration: PulseDuration}
		a.ensurePulse()
	}
	a.animations[id] = anim
	// A fade-out queued before the first frame must start from here.
	if _, ok := a.opacity[id]; !ok {
		a.opacity[id] = anim.from
	}
	a.ensureOpacity()
}

// FadeOut starts fading id to zero from its current opacity. onComplete,
// if non-nil, runs on the loop once the fade finishes; a fade that is
// superseded before finishing never calls it.
func (a *Animator) FadeOut(id string, d time.Duration, onComplete func()) {
	if a.disposed {
		return
	}
	if d <= 0 {
		d = Duration
	}
	a.animations[id] = &animation{
		dir:        Out,
		start:      a.loop.Now(),
		from:       a.current(id, 1),
		to:         0,
		duration:   d,
		easing:     ease.OutCubic,
		onComplete: onComplete,
	}
	a.ensureOpacity()
}

// IsFadingOut reports whether id has an outgoing fade in flight.
func (a *Animator) IsFadingOut(id string) bool {
	anim, ok := a.animations[id]
	return ok && anim.dir == Out
}

// Opacity returns the last normalised opacity applied to id.
func (a *Animator) Opacity(id string) (float64, bool) {
	v, ok := a.opacity[id]
	return v, ok
}

// Pulsing reports whether id has a pulse in flight.
func (a *Animator) Pulsing(id string) bool {
	_, ok := a.pulses[id]
	return ok
}

// Active reports whether either track has work.
func (a *Animator) Active() bool {
	return len(a.animations) > 0 || len(a.pulses) > 0
}

// Dispose cancels both tracks and forgets all state. Later calls are no-ops
// and no further paint writes are made.
func (a *Animator) Dispose() {
	a.disposed = true
	a.opacityTrack.Cancel()
	a.pulseTrack.Cancel()
	clear(a.animations)
	clear(a.opacity)
	clear(a.pulses)
}

func (a *Animator) current(id string, fallback float64) float64 {
	if v, ok := a.opacity[id]; ok {
		return v
	}
	return fallback
}

func (a *Animator) ensureOpacity() {
	if !a.opacityTrack.Active() {
		a.opacityTrack = a.loop.Start("opacity", a.stepOpacity)
	}
}

func (a *Animator) ensurePulse() {
	if !a.pulseTrack.Active() {
		a.pulseTrack = a.loop.Start("pulse", a.stepPulses)
	}
}

func (a *Animator) stepOpacity(now time.Time) bool {
	if a.disposed {
		return false
	}
	type done struct {
		id   string
		anim *animation
	}
	var completed []done
	for _, id := range sortedKeys(a.animations) {
		anim := a.animations[id]
		p := ease.Progress(float64(now.Sub(anim.start)), float64(anim.duration))
		v := ease.Lerp(anim.from, anim.to, anim.easing(p))
		a.applyOpacity(id, v)
		a.opacity[id] = v
		if p >= 1 {
			completed = append(completed, done{id, anim})
		}
	}
	for _, c := range completed {
		// A completion callback may already have restarted this id.
		if a.animations[c.id] != c.anim {
			continue
		}
		delete(a.animations, c.id)
		if c.anim.dir == Out {
			delete(a.opacity, c.id)
			if c.anim.onComplete != nil {
				c.anim.onComplete()
			}
			if a.disposed {
				return false
			}
		}
	}
	return len(a.animations) > 0
}

func (a *Animator) stepPulses(now time.Time) bool {
	if a.disposed {
		return false
	}
	for _, id := range sortedKeys(a.pulses) {
		pl := a.pulses[id]
		p := ease.Progress(float64(now.Sub(pl.start)), float64(pl.duration))
		intensity := math.Sin(math.Pi * p)
		a.applyLineWidth(id, ease.Lerp(LineWidthBase, LineWidthPeak, intensity))
		if p >= 1 {
			delete(a.pulses, id)
			a.applyLineWidth(id, LineWidthBase)
		}
	}
	return len(a.pulses) > 0
}

func (a *Animator) applyOpacity(id string, normalised float64) {
	render.Paint(a.surface, render.FillLayerID(id), PropFillOpacity, normalised*FillOpacityTarget)
	render.Paint(a.surface, render.LineLayerID(id), PropLineOpacity, normalised*LineOpacityTarget)
}

func (a *Animator) applyLineWidth(id string, width float64) {
	render.Paint(a.surface, render.LineLayerID(id), PropLineWidth, width)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
