// Package coexist compares the entities active in one year: their relative
// territory, the dominant power and a short summary for display.
package coexist

import (
	"fmt"
	"strings"

	"github.com/intelligrit/chronomap/internal/model"
)

// Report compares the entities active at Year.
type Report struct {
	Year     int
	Active   []*model.Empire
	Dominant *model.Empire
	// Areas holds raw shoelace areas of entities with geometry at Year.
	Areas map[string]float64
	// Sizes holds Areas normalised by the largest, in [0,1].
	Sizes map[string]float64
}

// Build compares active at year. Entities without geometry at year get no
// size. The dominant entity has the largest positive area; ties go to the
// earlier entity in active.
func Build(active []*model.Empire, year int) Report {
	r := Report{
		Year:   year,
		Active: active,
		Areas:  make(map[string]float64, len(active)),
		Sizes:  make(map[string]float64, len(active)),
	}

	maxArea := 0.0
	for _, e := range active {
		s := e.ActiveSlice(year)
		if s == nil {
			continue
		}
		a := s.Area()
		r.Areas[e.ID] = a
		maxArea = max(maxArea, a)
	}
	for id, a := range r.Areas {
		if maxArea > 0 {
			r.Sizes[id] = a / maxArea
		} else {
			r.Sizes[id] = 0
		}
	}

	best := 0.0
	for _, e := range active {
		if a := r.Areas[e.ID]; a > best {
			best = a
			r.Dominant = e
		}
	}
	return r
}

// Summary describes who shares the map: "A and B coexist." for two,
// "N powers active." for more, and "" otherwise.
func (r Report) Summary() string {
	switch n := len(r.Active); {
	case n == 2:
		names := make([]string, n)
		for i, e := range r.Active {
			names[i] = e.Name
		}
		return strings.Join(names, " and ") + " coexist."
	case n > 2:
		return fmt.Sprintf("%d powers active.", n)
	default:
		return ""
	}
}
