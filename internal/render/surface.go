// Package render defines the map surface the animation core draws on and an
// in-memory Scene implementation that mirrors its state and broadcasts each
// mutation as a Command to connected clients.
package render

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/intelligrit/chronomap/internal/geo"
)

var (
	ErrNoLayer     = errors.New("layer not found")
	ErrNoSource    = errors.New("source not found")
	ErrExists      = errors.New("already exists")
	ErrSourceInUse = errors.New("source still referenced by a layer")
)

// LayerKind is the draw type of a layer.
type LayerKind string

const (
	KindFill   LayerKind = "fill"
	KindLine   LayerKind = "line"
	KindSymbol LayerKind = "symbol"
)

// Layer describes a style layer bound to a source.
type Layer struct {
	ID     string         `json:"id"`
	Kind   LayerKind      `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
	Before string         `json:"before,omitempty"`
}

// CameraOptions control a FitBounds viewport transition.
type CameraOptions struct {
	Padding  int
	MaxZoom  float64 // 0 means no ceiling
	Pitch    float64
	Duration time.Duration
	Easing   string
}

// MarshalJSON encodes the duration in milliseconds, the unit map clients use.
func (o CameraOptions) MarshalJSON() ([]byte, error) {
	out := struct {
		Padding  int     `json:"padding"`
		MaxZoom  float64 `json:"maxZoom,omitempty"`
		Pitch    float64 `json:"pitch"`
		Duration int64   `json:"duration"`
		Easing   string  `json:"easing"`
	}{o.Padding, o.MaxZoom, o.Pitch, o.Duration.Milliseconds(), o.Easing}
	return json.Marshal(out)
}

// Surface is the rendering collaborator. Implementations return ErrNoLayer,
// ErrNoSource or ErrExists when a call races a concurrent teardown.
type Surface interface {
	AddSource(id string, data geo.FeatureCollection) error
	SetSourceData(id string, data geo.FeatureCollection) error
	RemoveSource(id string) error
	HasSource(id string) bool

	AddLayer(l Layer) error
	RemoveLayer(id string) error
	HasLayer(id string) bool
	SetPaint(layerID, prop string, value any) error

	// QueryRendered returns the ids of the given layers whose geometry
	// contains pt, in the order given.
	QueryRendered(pt geo.Position, layerIDs []string) []string

	FitBounds(b geo.Bounds, opts CameraOptions) error
}

// SourceID, FillLayerID and LineLayerID name the resources drawn for one entity.
func SourceID(entityID string) string    { return "source-" + entityID }
func FillLayerID(entityID string) string { return "fill-" + entityID }
func LineLayerID(entityID string) string { return "line-" + entityID }

// EntityFromLayer recovers the entity id from a fill or line layer id.
func EntityFromLayer(layerID string) (string, bool) {
	if id, ok := strings.CutPrefix(layerID, "fill-"); ok {
		return id, true
	}
	return strings.CutPrefix(layerID, "line-")
}

// Paint sets a paint property if the layer still exists. Layers disappear
// underneath running animations during rapid scrubbing; the result reports
// whether the write landed and callers are free to ignore it.
func Paint(s Surface, layerID, prop string, value any) bool {
	if !s.HasLayer(layerID) {
		return false
	}
	return s.SetPaint(layerID, prop, value) == nil
}

// SetData replaces a source's data in place if the source still exists.
func SetData(s Surface, sourceID string, data geo.FeatureCollection) bool {
	if !s.HasSource(sourceID) {
		return false
	}
	return s.SetSourceData(sourceID, data) == nil
}

// RemoveLayers removes whichever of the layers still exist. It reports
// whether every removal that was attempted succeeded.
func RemoveLayers(s Surface, layerIDs ...string) bool {
	ok := true
	for _, id := range layerIDs {
		if !s.HasLayer(id) {
			continue
		}
		if err := s.RemoveLayer(id); err != nil {
			ok = false
		}
	}
	return ok
}

// RemoveSource removes the source if it still exists.
func RemoveSource(s Surface, id string) bool {
	if !s.HasSource(id) {
		return false
	}
	return s.RemoveSource(id) == nil
}
