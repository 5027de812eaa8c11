package render

import (
	"fmt"
	"maps"
	"sync"

	"github.com/intelligrit/chronomap/internal/geo"
)

// Op names a surface mutation on the wire.
type Op string

const (
	OpAddSource    Op = "addSource"
	OpSetData      Op = "setData"
	OpRemoveSource Op = "removeSource"
	OpAddLayer     Op = "addLayer"
	OpRemoveLayer  Op = "removeLayer"
	OpSetPaint     Op = "setPaint"
	OpFitBounds    Op = "fitBounds"
)

// Command is one surface mutation, replayed by map clients.
type Command struct {
	Op     Op                     `json:"op"`
	ID     string                 `json:"id,omitempty"`
	Data   *geo.FeatureCollection `json:"data,omitempty"`
	Layer  *Layer                 `json:"layer,omitempty"`
	Prop   string                 `json:"prop,omitempty"`
	Value  any                    `json:"value"`
	Bounds *geo.Bounds            `json:"bounds,omitempty"`
	Camera *CameraOptions         `json:"camera,omitempty"`
}

// Sink receives commands. Emit is called with the scene lock held and must
// not block or call back into the scene.
type Sink interface {
	Emit(Command)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Command)

func (f SinkFunc) Emit(c Command) { f(c) }

// Scene is an in-memory Surface. It tracks sources, layers and paint so it
// can answer existence checks and hit tests locally, and forwards every
// mutation to its subscribers.
type Scene struct {
	mu sync.RWMutex

	sources     map[string]geo.FeatureCollection
	sourceOrder []string
	layers      map[string]*Layer
	layerOrder  []string
	camera      *Command

	subs   map[int]Sink
	nextID int
}

// NewScene creates an empty scene. Initial sinks are subscribed permanently.
func NewScene(sinks ...Sink) *Scene {
	s := &Scene{
		sources: make(map[string]geo.FeatureCollection),
		layers:  make(map[string]*Layer),
		subs:    make(map[int]Sink),
	}
	for _, sink := range sinks {
		s.subs[s.nextID] = sink
		s.nextID++
	}
	return s
}

// Subscribe registers sink and returns the commands that rebuild the current
// state. No command is lost or duplicated between the snapshot and the live
// stream.
func (s *Scene) Subscribe(sink Sink) (snapshot []Command, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = sink

	return s.snapshotLocked(), func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns commands that rebuild the current state.
func (s *Scene) Snapshot() []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() []Command {
	var out []Command
	for _, id := range s.sourceOrder {
		data := s.sources[id]
		out = append(out, Command{Op: OpAddSource, ID: id, Data: &data})
	}
	for _, id := range s.layerOrder {
		l := copyLayer(s.layers[id])
		out = append(out, Command{Op: OpAddLayer, ID: id, Layer: &l})
	}
	if s.camera != nil {
		out = append(out, *s.camera)
	}
	return out
}

func (s *Scene) emitLocked(c Command) {
	for _, sink := range s.subs {
		sink.Emit(c)
	}
}

func (s *Scene) AddSource(id string, data geo.FeatureCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; ok {
		return fmt.Errorf("source %q: %w", id, ErrExists)
	}
	s.sources[id] = data
	s.sourceOrder = append(s.sourceOrder, id)
	s.emitLocked(Command{Op: OpAddSource, ID: id, Data: &data})
	return nil
}

func (s *Scene) SetSourceData(id string, data geo.FeatureCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return fmt.Errorf("source %q: %w", id, ErrNoSource)
	}
	s.sources[id] = data
	s.emitLocked(Command{Op: OpSetData, ID: id, Data: &data})
	return nil
}

func (s *Scene) RemoveSource(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return fmt.Errorf("source %q: %w", id, ErrNoSource)
	}
	for _, l := range s.layers {
		if l.Source == id {
			return fmt.Errorf("source %q used by %q: %w", id, l.ID, ErrSourceInUse)
		}
	}
	delete(s.sources, id)
	s.sourceOrder = remove(s.sourceOrder, id)
	s.emitLocked(Command{Op: OpRemoveSource, ID: id})
	return nil
}

func (s *Scene) HasSource(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[id]
	return ok
}

// AddLayer inserts the layer below l.Before when that layer exists, on top
// otherwise.
func (s *Scene) AddLayer(l Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[l.ID]; ok {
		return fmt.Errorf("layer %q: %w", l.ID, ErrExists)
	}
	if _, ok := s.sources[l.Source]; !ok {
		return fmt.Errorf("layer %q source %q: %w", l.ID, l.Source, ErrNoSource)
	}

	stored := copyLayer(&l)
	s.layers[l.ID] = &stored

	idx := len(s.layerOrder)
	if l.Before != "" {
		for i, id := range s.layerOrder {
			if id == l.Before {
				idx = i
				break
			}
		}
	}
	s.layerOrder = append(s.layerOrder, "")
	copy(s.layerOrder[idx+1:], s.layerOrder[idx:])
	s.layerOrder[idx] = l.ID

	sent := copyLayer(&l)
	s.emitLocked(Command{Op: OpAddLayer, ID: l.ID, Layer: &sent})
	return nil
}

func (s *Scene) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[id]; !ok {
		return fmt.Errorf("layer %q: %w", id, ErrNoLayer)
	}
	delete(s.layers, id)
	s.layerOrder = remove(s.layerOrder, id)
	s.emitLocked(Command{Op: OpRemoveLayer, ID: id})
	return nil
}

func (s *Scene) HasLayer(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layers[id]
	return ok
}

func (s *Scene) SetPaint(layerID, prop string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[layerID]
	if !ok {
		return fmt.Errorf("layer %q: %w", layerID, ErrNoLayer)
	}
	if l.Paint == nil {
		l.Paint = make(map[string]any)
	}
	l.Paint[prop] = value
	s.emitLocked(Command{Op: OpSetPaint, ID: layerID, Prop: prop, Value: value})
	return nil
}

// PaintValue returns the current value of a paint property.
func (s *Scene) PaintValue(layerID, prop string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[layerID]
	if !ok {
		return nil, false
	}
	v, ok := l.Paint[prop]
	return v, ok
}

// Layers returns the layer ids in draw order.
func (s *Scene) Layers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.layerOrder...)
}

// SourceData returns the data currently held by a source.
func (s *Scene) SourceData(id string) (geo.FeatureCollection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.sources[id]
	return fc, ok
}

func (s *Scene) QueryRendered(pt geo.Position, layerIDs []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []string
	for _, id := range layerIDs {
		l, ok := s.layers[id]
		if !ok || l.Kind != KindFill {
			continue
		}
		if s.sources[l.Source].Contains(pt) {
			hits = append(hits, id)
		}
	}
	return hits
}

func (s *Scene) FitBounds(b geo.Bounds, opts CameraOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Command{Op: OpFitBounds, Bounds: &b, Camera: &opts}
	s.camera = &c
	s.emitLocked(c)
	return nil
}

func copyLayer(l *Layer) Layer {
	out := *l
	out.Paint = maps.Clone(l.Paint)
	out.Layout = maps.Clone(l.Layout)
	return out
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
