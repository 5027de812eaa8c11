// Package playback advances the selected year in real time.
package playback

import (
	"time"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/timeline"
)

// TrackName is the frame loop track the driver runs on.
const TrackName = "playback"

// DefaultSpeed is the base rate in years per second.
const DefaultSpeed = 50.0

// Driver moves the year forward at speed scaled by the momentum curve and
// stops at the end of the range. Methods must run on the loop goroutine.
type Driver struct {
	loop  *frame.Loop
	rng   timeline.Range
	speed float64
	year  float64

	track   *frame.Track
	started time.Time
	last    time.Time
	primed  bool

	yearHooks  []func(year float64)
	stateHooks []func(playing bool)
}

// New returns a paused driver positioned at the start of rng.
func New(loop *frame.Loop, rng timeline.Range, speed float64) *Driver {
	if !rng.Valid() {
		rng = timeline.DefaultRange
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Driver{loop: loop, rng: rng, speed: speed, year: float64(rng.Min)}
}

// OnYear registers fn to run on every year change.
func (d *Driver) OnYear(fn func(year float64)) { d.yearHooks = append(d.yearHooks, fn) }

// OnState registers fn to run when playback starts or stops.
func (d *Driver) OnState(fn func(playing bool)) { d.stateHooks = append(d.stateHooks, fn) }

// Year returns the current, unfloored year.
func (d *Driver) Year() float64 { return d.year }

// Speed returns the base speed in years per second.
func (d *Driver) Speed() float64 { return d.speed }

// Range returns the playable range.
func (d *Driver) Range() timeline.Range { return d.rng }

// Playing reports whether the playback track is running.
func (d *Driver) Playing() bool { return d.track.Active() }

// Play starts advancing from the current year. The momentum ramp restarts
// with every Play.
func (d *Driver) Play() {
	if d.Playing() {
		return
	}
	d.started = d.loop.Now()
	d.primed = false
	d.track = d.loop.Start(TrackName, d.step)
	d.notifyState(true)
}

// Pause stops advancing and keeps the current year.
func (d *Driver) Pause() {
	if !d.Playing() {
		return
	}
	d.track.Cancel()
	d.track = nil
	d.notifyState(false)
}

// SetSpeed changes the base speed. Non-positive values are ignored.
func (d *Driver) SetSpeed(yearsPerSecond float64) {
	if yearsPerSecond > 0 {
		d.speed = yearsPerSecond
	}
}

// Seek jumps to year, clamped to the range. Playback continues from there
// if it was running.
func (d *Driver) Seek(year float64) {
	year = d.rng.Clamp(year)
	if year == d.year {
		return
	}
	d.setYear(year)
}

func (d *Driver) step(now time.Time) bool {
	// The first frame only records the time so the opening step has no
	// stale delta.
	if !d.primed {
		d.primed = true
		d.last = now
		return true
	}
	dt := now.Sub(d.last).Seconds()
	d.last = now
	elapsed := now.Sub(d.started).Seconds()

	next := d.year + d.speed*timeline.MomentumFactor(d.year, elapsed)*dt
	if next >= float64(d.rng.Max) {
		d.setYear(float64(d.rng.Max))
		d.track = nil
		d.notifyState(false)
		return false
	}
	d.setYear(next)
	return true
}

func (d *Driver) setYear(year float64) {
	d.year = year
	for _, fn := range d.yearHooks {
		fn(year)
	}
}

func (d *Driver) notifyState(playing bool) {
	for _, fn := range d.stateHooks {
		fn(playing)
	}
}
