package camera

import (
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/model"
)

// Lookup returns a resident entity.
type Lookup func(id string) (*model.Empire, bool)

// EntityBounds is the bounding box of e's geometry active at year.
func EntityBounds(e *model.Empire, year int) (geo.Bounds, bool) {
	s := e.ActiveSlice(year)
	if s == nil {
		return geo.Bounds{}, false
	}
	return s.Shape.Bounds()
}

// CombinedBounds merges the active-year bounds of every resident entity in
// ids. Entities that are not resident or have no geometry at year are
// skipped; false means nothing contributed.
func CombinedBounds(ids []string, year int, get Lookup) (geo.Bounds, bool) {
	out := geo.EmptyBounds()
	for _, id := range ids {
		e, ok := get(id)
		if !ok {
			continue
		}
		b, ok := EntityBounds(e, year)
		if !ok {
			continue
		}
		out = out.Union(b)
	}
	if out.Empty() {
		return geo.Bounds{}, false
	}
	return out, true
}

// Centroid is the bounding-box centre of e's geometry at year. Used to
// place the engraved label.
func Centroid(e *model.Empire, year int) (geo.Position, bool) {
	b, ok := EntityBounds(e, year)
	if !ok {
		return geo.Position{}, false
	}
	return b.Center(), true
}
