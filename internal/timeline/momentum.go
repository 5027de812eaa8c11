package timeline

import (
	"math"

	"github.com/intelligrit/chronomap/internal/ease"
)

// Momentum tuning.
const (
	BrakeRadius = 20.0
	BrakeFloor  = 0.6
	AccelRadius = 200.0
	AccelFactor = 1.15
	RampSeconds = 3.0
	MaxFactor   = 1.2
)

// MomentumFactor scales the base playback speed. It ramps in over the first
// RampSeconds of playback, slows to BrakeFloor at a chapter boundary and
// speeds up to AccelFactor more than AccelRadius years from any chapter.
// The result is in [0, MaxFactor].
func MomentumFactor(year, elapsedSeconds float64) float64 {
	ramp := ease.Smoothstep(0, RampSeconds, elapsedSeconds)

	closest := math.Inf(1)
	for _, c := range Chapters {
		closest = math.Min(closest, math.Abs(year-float64(c.Year)))
	}

	factor := 1.0
	switch {
	case closest < BrakeRadius:
		factor = BrakeFloor + (1-BrakeFloor)*(closest/BrakeRadius)
	case closest > AccelRadius:
		factor = AccelFactor
	}

	return math.Min(ramp*factor, MaxFactor)
}
