package geo

import (
	"encoding/json"
	"fmt"
)

// Geometry type names as they appear in GeoJSON.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Position is a [lng, lat] pair. Extra elements (altitude) are dropped on decode.
type Position [2]float64

func (p Position) Lng() float64 { return p[0] }
func (p Position) Lat() float64 { return p[1] }

// Ring is a linear ring. The first ring of a Polygon is its exterior.
type Ring []Position

// Polygon is an exterior ring followed by zero or more holes.
type Polygon []Ring

// Geometry is a Point, Polygon or MultiPolygon. A Polygon is held as a
// single-element Polygons slice so area and bounds code only walks one shape.
type Geometry struct {
	Type     string
	Polygons []Polygon
	Point    Position
}

// PointGeometry returns a Point geometry at p.
func PointGeometry(p Position) Geometry {
	return Geometry{Type: TypePoint, Point: p}
}

// PolygonGeometry returns a Polygon geometry with the given rings.
func PolygonGeometry(rings ...Ring) Geometry {
	return Geometry{Type: TypePolygon, Polygons: []Polygon{rings}}
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON emits standard GeoJSON, restoring the Polygon/MultiPolygon distinction.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch g.Type {
	case TypePoint:
		coords = g.Point
	case TypePolygon:
		if len(g.Polygons) > 0 {
			coords = g.Polygons[0]
		} else {
			coords = Polygon{}
		}
	case TypeMultiPolygon:
		coords = g.Polygons
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	return json.Marshal(struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}{g.Type, coords})
}

// UnmarshalJSON accepts Point, Polygon and MultiPolygon geometries.
func (g *Geometry) UnmarshalJSON(b []byte) error {
	var raw rawGeometry
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	g.Type = raw.Type
	g.Polygons = nil
	g.Point = Position{}

	switch raw.Type {
	case TypePoint:
		return json.Unmarshal(raw.Coordinates, &g.Point)
	case TypePolygon:
		var p Polygon
		if err := json.Unmarshal(raw.Coordinates, &p); err != nil {
			return fmt.Errorf("decoding polygon: %w", err)
		}
		g.Polygons = []Polygon{p}
	case TypeMultiPolygon:
		if err := json.Unmarshal(raw.Coordinates, &g.Polygons); err != nil {
			return fmt.Errorf("decoding multipolygon: %w", err)
		}
	default:
		return fmt.Errorf("unsupported geometry type %q", raw.Type)
	}
	return nil
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// NewFeature builds a Feature with the given geometry and properties.
func NewFeature(g Geometry, props map[string]any) Feature {
	if props == nil {
		props = map[string]any{}
	}
	return Feature{Type: "Feature", Properties: props, Geometry: g}
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewCollection wraps features in a FeatureCollection. The features slice is
// never nil so an empty collection encodes as [].
func NewCollection(features ...Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
