package model

import "github.com/intelligrit/chronomap/internal/geo"

// Era groups empires for filtering and status output.
type Era string

const (
	EraAncient     Era = "ancient"
	EraMedieval    Era = "medieval"
	EraEarlyModern Era = "earlyModern"
)

// Ruler is display-only metadata.
type Ruler struct {
	Name       string `json:"name"`
	ReignStart int    `json:"reignStart"`
	ReignEnd   int    `json:"reignEnd"`
}

// Event is display-only metadata.
type Event struct {
	Year        int    `json:"year"`
	Description string `json:"description"`
}

// YearRange is an inclusive span of integer years. BCE years are negative.
type YearRange struct {
	StartYear int `json:"startYear"`
	EndYear   int `json:"endYear"`
}

// Covers reports whether year lies in the range, both ends inclusive.
func (r YearRange) Covers(year int) bool {
	return r.StartYear <= year && year <= r.EndYear
}

// Overlaps reports whether the two ranges share at least one year.
func (r YearRange) Overlaps(o YearRange) bool {
	return r.StartYear <= o.EndYear && o.StartYear <= r.EndYear
}

// Slice is one time-bounded shape of an empire. Immutable once loaded.
type Slice struct {
	YearRange
	Shape geo.FeatureCollection `json:"geojson"`
	// PrecomputedArea caches Shape.Area(); zero means not computed.
	PrecomputedArea float64 `json:"precomputedArea,omitempty"`
}

// Area returns the cached area when present, otherwise computes it.
func (s *Slice) Area() float64 {
	if s.PrecomputedArea > 0 {
		return s.PrecomputedArea
	}
	return s.Shape.Area()
}

// Empire is a historical polity with one or more geometry slices.
type Empire struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Capital     string  `json:"capital"`
	Color       string  `json:"color"`
	Description string  `json:"description,omitempty"`
	Era         Era     `json:"era,omitempty"`
	StartYear   int     `json:"startYear"`
	EndYear     int     `json:"endYear"`
	Geometries  []Slice `json:"geometries"`
	Rulers      []Ruler `json:"rulers,omitempty"`
	Events      []Event `json:"events,omitempty"`

	// Shape is the single outline of a record that predates geometries.
	// Normalize turns it into one slice spanning StartYear..EndYear.
	Shape *geo.FeatureCollection `json:"geojson,omitempty"`
}

// Normalize folds a single-shape record into Geometries. Records that
// already carry slices are left alone and any top-level shape is dropped.
func (e *Empire) Normalize() {
	if len(e.Geometries) == 0 && e.Shape != nil {
		e.Geometries = []Slice{{
			YearRange: YearRange{StartYear: e.StartYear, EndYear: e.EndYear},
			Shape:     *e.Shape,
		}}
	}
	e.Shape = nil
}

// ActiveSlice returns the slice covering year. When slices overlap the first
// in order wins. A year in a gap between slices, or outside every slice,
// returns nil.
func (e *Empire) ActiveSlice(year int) *Slice {
	for i := range e.Geometries {
		if e.Geometries[i].Covers(year) {
			return &e.Geometries[i]
		}
	}
	return nil
}

// Span returns the union bounds of the slices' year ranges.
func (e *Empire) Span() (YearRange, bool) {
	if len(e.Geometries) == 0 {
		return YearRange{}, false
	}
	r := e.Geometries[0].YearRange
	for _, s := range e.Geometries[1:] {
		r.StartYear = min(r.StartYear, s.StartYear)
		r.EndYear = max(r.EndYear, s.EndYear)
	}
	return r, true
}

// Overlaps returns pairs of slice indices whose year ranges intersect.
func (e *Empire) Overlaps() [][2]int {
	var out [][2]int
	for i := range e.Geometries {
		for j := i + 1; j < len(e.Geometries); j++ {
			if e.Geometries[i].Overlaps(e.Geometries[j].YearRange) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// ManifestEntry is the light index record used to answer "who is active in
// year Y" without loading geometry.
type ManifestEntry struct {
	ID        string `json:"id"`
	StartYear int    `json:"startYear"`
	EndYear   int    `json:"endYear"`
	Name      string `json:"name,omitempty"`
	Era       Era    `json:"era,omitempty"`
}

// PlaceName is a name a place carried over a span of years.
type PlaceName struct {
	YearRange
	Name string `json:"name"`
}

// Place is a city or landmark whose name changes over time
// (Byzantium, Constantinople, Istanbul).
type Place struct {
	ID          string       `json:"id"`
	Coordinates geo.Position `json:"coordinates"`
	Names       []PlaceName  `json:"names"`
}

// NameAt returns the first name valid at year, or "" if none.
func (p Place) NameAt(year int) string {
	for _, n := range p.Names {
		if n.Covers(year) {
			return n.Name
		}
	}
	return ""
}
