// Package timeline holds the year arithmetic behind the slider: display
// formatting, slider mapping, chapter boundaries and playback momentum.
package timeline

import (
	"fmt"
	"math"
)

// Default bounds of the slider.
const (
	MinYear = -3000
	MaxYear = 2000
)

// Range is the span of years the slider covers.
type Range struct {
	Min int
	Max int
}

// DefaultRange covers MinYear..MaxYear.
var DefaultRange = Range{Min: MinYear, Max: MaxYear}

// Valid reports whether the range is non-empty.
func (r Range) Valid() bool { return r.Min < r.Max }

// SliderToYear maps a slider ratio in [0,1] to the nearest whole year.
func (r Range) SliderToYear(ratio float64) int {
	return int(roundHalfUp(float64(r.Min) + ratio*float64(r.Max-r.Min)))
}

// YearToSlider maps a year to its slider ratio.
func (r Range) YearToSlider(year float64) float64 {
	return (year - float64(r.Min)) / float64(r.Max-r.Min)
}

// Clamp limits year to the range.
func (r Range) Clamp(year float64) float64 {
	return math.Max(float64(r.Min), math.Min(float64(r.Max), year))
}

// FormatYear renders a year for display. There is no year zero; it is shown
// as 1 BCE.
func FormatYear(year float64) string {
	y := int(roundHalfUp(year))
	switch {
	case y < 0:
		return fmt.Sprintf("%d BCE", -y)
	case y == 0:
		return "1 BCE"
	default:
		return fmt.Sprintf("%d CE", y)
	}
}

// Floor converts a continuous playback year to the whole year used for
// visibility.
func Floor(year float64) int { return int(math.Floor(year)) }

func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

// Marker is a labelled tick on the slider.
type Marker struct {
	Year  int    `json:"year"`
	Label string `json:"label"`
}

// Markers returns a tick every millennium (and at 500 BCE/CE) inside r.
func (r Range) Markers() []Marker {
	var out []Marker
	for _, y := range []int{-3000, -2000, -1000, -500, 0, 500, 1000, 1500, 2000} {
		if y < r.Min || y > r.Max {
			continue
		}
		label := FormatYear(float64(y))
		if y == 0 {
			label = "1 CE"
		}
		out = append(out, Marker{Year: y, Label: label})
	}
	return out
}

// SpeedPreset is a named playback rate in years per second.
type SpeedPreset struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SpeedPresets are the rates offered by the player.
var SpeedPresets = []SpeedPreset{
	{Label: "1x", Value: 50},
	{Label: "2x", Value: 100},
	{Label: "5x", Value: 250},
	{Label: "10x", Value: 500},
}
