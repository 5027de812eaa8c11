package geo

import (
	"encoding/json"
	"math"
)

// RingArea is the shoelace area of a ring on raw lng/lat coordinates.
// Only meaningful for ranking shapes against each other.
func RingArea(r Ring) float64 {
	var area float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += r[i][0] * r[j][1]
		area -= r[j][0] * r[i][1]
	}
	return math.Abs(area) / 2
}

// Area sums the exterior rings of every polygon. Holes are not subtracted.
func (g Geometry) Area() float64 {
	var total float64
	for _, p := range g.Polygons {
		if len(p) == 0 {
			continue
		}
		total += RingArea(p[0])
	}
	return total
}

// Area sums the area of every feature in the collection.
func (fc FeatureCollection) Area() float64 {
	var total float64
	for _, f := range fc.Features {
		total += f.Geometry.Area()
	}
	return total
}

// Bounds is a geographic bounding box.
type Bounds struct {
	MinLng, MinLat float64
	MaxLng, MaxLat float64
}

// EmptyBounds returns a box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		MinLng: math.Inf(1), MinLat: math.Inf(1),
		MaxLng: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// Empty reports whether no position has been added to b.
func (b Bounds) Empty() bool {
	return math.IsInf(b.MinLng, 1) || b.MinLng > b.MaxLng
}

// Extend grows b to include p.
func (b Bounds) Extend(p Position) Bounds {
	b.MinLng = math.Min(b.MinLng, p[0])
	b.MinLat = math.Min(b.MinLat, p[1])
	b.MaxLng = math.Max(b.MaxLng, p[0])
	b.MaxLat = math.Max(b.MaxLat, p[1])
	return b
}

// Union returns the smallest box holding both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if o.Empty() {
		return b
	}
	return b.Extend(Position{o.MinLng, o.MinLat}).Extend(Position{o.MaxLng, o.MaxLat})
}

// Center is the midpoint of the box.
func (b Bounds) Center() Position {
	return Position{(b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2}
}

// MarshalJSON encodes the box as [[minLng, minLat], [maxLng, maxLat]].
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Position{{b.MinLng, b.MinLat}, {b.MaxLng, b.MaxLat}})
}

// UnmarshalJSON decodes the [[minLng, minLat], [maxLng, maxLat]] form.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var corners [2]Position
	if err := json.Unmarshal(data, &corners); err != nil {
		return err
	}
	*b = Bounds{MinLng: corners[0][0], MinLat: corners[0][1], MaxLng: corners[1][0], MaxLat: corners[1][1]}
	return nil
}

// Bounds returns the box around every ring (holes included) of every feature.
// ok is false when the collection holds no coordinates.
func (fc FeatureCollection) Bounds() (Bounds, bool) {
	b := EmptyBounds()
	for _, f := range fc.Features {
		if f.Geometry.Type == TypePoint {
			b = b.Extend(f.Geometry.Point)
			continue
		}
		for _, p := range f.Geometry.Polygons {
			for _, r := range p {
				for _, pos := range r {
					b = b.Extend(pos)
				}
			}
		}
	}
	return b, !b.Empty()
}

// Contains reports whether pt falls inside any polygon of the collection,
// honouring holes.
func (fc FeatureCollection) Contains(pt Position) bool {
	for _, f := range fc.Features {
		for _, p := range f.Geometry.Polygons {
			if polygonContains(p, pt) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p Polygon, pt Position) bool {
	if len(p) == 0 || !ringContains(p[0], pt) {
		return false
	}
	for _, hole := range p[1:] {
		if ringContains(hole, pt) {
			return false
		}
	}
	return true
}

// ringContains is the even-odd ray casting test.
func ringContains(r Ring, pt Position) bool {
	in := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if (yi > pt[1]) != (yj > pt[1]) &&
			pt[0] < (xj-xi)*(pt[1]-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}
