package geo

import (
	"encoding/json"
	"math"
	"testing"
)

func square(x0, y0, size float64) Ring {
	return Ring{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}
}

func TestRingArea(t *testing.T) {
	if got := RingArea(square(0, 0, 2)); got != 4 {
		t.Errorf("expected area 4, got %v", got)
	}

	// Winding direction must not change the sign.
	r := square(0, 0, 3)
	rev := make(Ring, len(r))
	for i := range r {
		rev[len(r)-1-i] = r[i]
	}
	if got := RingArea(rev); got != 9 {
		t.Errorf("expected area 9 for reversed ring, got %v", got)
	}
}

func TestAreaIgnoresHoles(t *testing.T) {
	g := PolygonGeometry(square(0, 0, 4), square(1, 1, 1))
	if got := g.Area(); got != 16 {
		t.Errorf("expected exterior-only area 16, got %v", got)
	}
}

func TestCollectionAreaSumsMultiPolygons(t *testing.T) {
	fc := NewCollection(
		NewFeature(Geometry{Type: TypeMultiPolygon, Polygons: []Polygon{{square(0, 0, 1)}, {square(5, 5, 2)}}}, nil),
		NewFeature(PolygonGeometry(square(10, 10, 3)), nil),
	)
	if got := fc.Area(); got != 14 {
		t.Errorf("expected 1+4+9=14, got %v", got)
	}
}

func TestDecodePolygonNormalises(t *testing.T) {
	src := `{"type":"Feature","properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`
	var f Feature
	if err := json.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("decoding feature: %v", err)
	}
	if len(f.Geometry.Polygons) != 1 || len(f.Geometry.Polygons[0][0]) != 4 {
		t.Fatalf("expected one polygon with a 4-point ring, got %+v", f.Geometry.Polygons)
	}

	out, err := json.Marshal(f.Geometry)
	if err != nil {
		t.Fatalf("encoding geometry: %v", err)
	}
	var raw rawGeometry
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("decoding re-encoded geometry: %v", err)
	}
	if raw.Type != TypePolygon {
		t.Errorf("expected Polygon type preserved, got %q", raw.Type)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	var g Geometry
	if err := json.Unmarshal([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), &g); err == nil {
		t.Error("expected error for LineString")
	}
}

func TestCollectionBounds(t *testing.T) {
	fc := NewCollection(
		NewFeature(PolygonGeometry(square(-10, 5, 2)), nil),
		NewFeature(PolygonGeometry(square(20, -3, 4)), nil),
	)
	b, ok := fc.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	want := Bounds{MinLng: -10, MinLat: -3, MaxLng: 24, MaxLat: 7}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}
	if c := b.Center(); c != (Position{7, 2}) {
		t.Errorf("expected center [7 2], got %v", c)
	}

	if _, ok := NewCollection().Bounds(); ok {
		t.Error("expected no bounds for empty collection")
	}
}

func TestBoundsUnionWithEmpty(t *testing.T) {
	b := Bounds{MinLng: 1, MinLat: 2, MaxLng: 3, MaxLat: 4}
	if got := b.Union(EmptyBounds()); got != b {
		t.Errorf("union with empty changed bounds: %+v", got)
	}
	if got := EmptyBounds().Union(b); got != b {
		t.Errorf("empty union b should be b, got %+v", got)
	}
	if !EmptyBounds().Empty() || b.Empty() {
		t.Error("Empty() misreports")
	}
	if math.IsInf(EmptyBounds().Extend(Position{1, 1}).MinLng, 0) {
		t.Error("Extend should replace infinite corners")
	}
}

func TestContains(t *testing.T) {
	fc := NewCollection(NewFeature(PolygonGeometry(square(0, 0, 10), square(4, 4, 2)), nil))

	if !fc.Contains(Position{1, 1}) {
		t.Error("expected point inside exterior")
	}
	if fc.Contains(Position{5, 5}) {
		t.Error("expected point in hole to be outside")
	}
	if fc.Contains(Position{11, 1}) {
		t.Error("expected point outside")
	}
}
