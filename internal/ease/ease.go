// Package ease holds the timing curves shared by the fade, camera and
// engrave animations. Every curve maps progress t in [0,1] to an eased value.
package ease

import "math"

// Func maps linear progress to eased progress.
type Func func(t float64) float64

// Linear returns t unchanged.
func Linear(t float64) float64 { return t }

// OutQuad decelerates quadratically.
func OutQuad(t float64) float64 { return t * (2 - t) }

// OutCubic decelerates cubically. Monotonic and bounded to [0,1].
func OutCubic(t float64) float64 { return 1 - math.Pow(1-t, 3) }

// OutBack overshoots to roughly 1.17 around t=0.53 and settles back to 1.
// The peak is 1 + 4*c1^3 / (27*(c1+1)^2). Applied to a normalised opacity
// it produces a brief flash above the resting value.
func OutBack(t float64) float64 {
	const c1 = 2.34
	const c3 = c1 + 1
	return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
}

// Smoothstep is the cubic Hermite step between edge0 and edge1, clamped.
func Smoothstep(edge0, edge1, x float64) float64 {
	t := Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// Progress is elapsed/duration clamped to [0,1]. A non-positive duration is
// complete immediately.
func Progress(elapsed, duration float64) float64 {
	if duration <= 0 {
		return 1
	}
	return Clamp01(elapsed / duration)
}

var byName = map[string]Func{
	"linear":       Linear,
	"easeOutQuad":  OutQuad,
	"easeOutCubic": OutCubic,
	"easeOutBack":  OutBack,
}

// ByName looks up a curve by the name used on the wire. Unknown names
// fall back to Linear.
func ByName(name string) Func {
	if f, ok := byName[name]; ok {
		return f
	}
	return Linear
}
