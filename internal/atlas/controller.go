package atlas

import (
	"slices"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/camera"
	"github.com/intelligrit/chronomap/internal/engrave"
	"github.com/intelligrit/chronomap/internal/fade"
	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/model"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/store"
	"github.com/intelligrit/chronomap/internal/timeline"
)

// Label sources and layers owned by the controller.
const (
	NameSourceID  = "empire-name-labels"
	NameLayerID   = "empire-name-labels-layer"
	PlaceSourceID = "historical-places"
	PlaceLayerID  = "historical-place-labels"
)

// State is the view input: the selected year and whether focus mode is on.
type State struct {
	Year  float64 `json:"year"`
	Focus bool    `json:"focus"`
}

// Controller reacts to year and focus changes for one surface. All methods
// must run on the loop goroutine.
type Controller struct {
	surface render.Surface
	catalog Catalog
	log     *zap.Logger

	fader   *fade.Animator
	sync    *Synchronizer
	camera  *camera.Scheduler
	engrave *engrave.Effect

	places []model.Place

	year     int
	focus    bool
	rendered bool
	visible  []string
	disposed bool

	visibleHooks  []func(year int, ids []string)
	selectedHooks []func(*model.Empire)
}

// NewController builds the fade, camera and engrave machinery on loop and
// surface.
func NewController(loop *frame.Loop, surface render.Surface, catalog Catalog, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	fader := fade.New(loop, surface)
	return &Controller{
		surface: surface,
		catalog: catalog,
		log:     log,
		fader:   fader,
		sync:    NewSynchronizer(surface, fader, catalog, NameLayerID, log.Named("sync")),
		camera:  camera.New(loop, surface, log.Named("camera")),
		engrave: engrave.New(loop, surface, log.Named("engrave")),
	}
}

// OnVisibleChanged registers fn to run whenever the visible set changes.
func (c *Controller) OnVisibleChanged(fn func(year int, ids []string)) {
	c.visibleHooks = append(c.visibleHooks, fn)
}

// OnSelected registers fn to run when a click lands on an entity.
func (c *Controller) OnSelected(fn func(*model.Empire)) {
	c.selectedHooks = append(c.selectedHooks, fn)
}

// SetPlaces replaces the historical places and redraws their labels.
func (c *Controller) SetPlaces(places []model.Place) {
	c.places = places
	if c.rendered {
		c.updatePlaces()
	}
}

// Init creates the label layers, requests the entities visible at year and
// draws the first frame. Entity layers are inserted below the name labels.
func (c *Controller) Init(st State) {
	if c.disposed || c.rendered {
		return
	}
	c.year = timeline.Floor(st.Year)
	c.focus = st.Focus

	for _, id := range c.catalog.VisibleIDs(c.year) {
		c.catalog.Load(id)
	}

	c.addLabelLayer(PlaceSourceID, render.Layer{
		ID:   PlaceLayerID,
		Kind: render.KindSymbol,
		Layout: map[string]any{
			"text-field":  []any{"get", "name"},
			"text-size":   12,
			"text-anchor": "top",
			"text-offset": []float64{0, 0.6},
		},
		Paint: map[string]any{
			"text-color":      "rgba(232, 228, 216, 0.9)",
			"text-halo-color": "rgba(0, 0, 0, 0.8)",
			"text-halo-width": 1,
		},
	})
	c.addLabelLayer(NameSourceID, render.Layer{
		ID:   NameLayerID,
		Kind: render.KindSymbol,
		Layout: map[string]any{
			"text-field": []any{"get", "name"},
			"text-size":  15,
		},
		Paint: map[string]any{
			"text-color":      []any{"get", "color"},
			"text-halo-color": "rgba(0, 0, 0, 0.85)",
			"text-halo-width": 1.5,
		},
	})

	c.rendered = true
	c.visible = c.sync.Sync(c.year)
	c.updatePlaces()
	c.updateNames()
	c.notifyVisible()
}

// Update applies a new state. A year that floors to the one already drawn
// only matters when focus turns off, which stops the engrave.
func (c *Controller) Update(st State) {
	if c.disposed {
		return
	}
	if !c.rendered {
		c.Init(st)
		return
	}

	year := timeline.Floor(st.Year)
	if year == c.year {
		if c.focus && !st.Focus {
			c.engrave.Stop()
		}
		c.focus = st.Focus
		return
	}
	c.year = year
	c.focus = st.Focus

	visible := c.sync.Sync(year)
	c.updatePlaces()
	c.updateNames()
	changed := !sameSet(c.visible, visible)
	c.react(visible, changed)
	c.visible = visible
	if changed {
		c.notifyVisible()
	}
}

// LoadComplete resyncs after an entity arrives. The camera and engrave only
// react when the arrival changed the visible set.
func (c *Controller) LoadComplete() {
	if c.disposed || !c.rendered {
		return
	}
	visible := c.sync.Sync(c.year)
	c.updateNames()
	if sameSet(c.visible, visible) {
		return
	}
	c.react(visible, true)
	c.visible = visible
	c.notifyVisible()
}

func (c *Controller) react(visible []string, changed bool) {
	if len(visible) > 2 {
		c.engrave.Stop()
	}
	if !c.focus || !changed {
		c.engrave.Stop()
		return
	}

	switch len(visible) {
	case 0:
		c.engrave.Stop()
		if len(c.visible) > 0 {
			c.camera.ScheduleGlobalReset()
		}
	case 1:
		id := visible[0]
		b, ok := camera.CombinedBounds(visible, c.year, c.catalog.Get)
		if !ok {
			return
		}
		c.camera.ScheduleFocus(b, true)
		e, ok := c.catalog.Get(id)
		if !ok {
			return
		}
		if centroid, ok := camera.Centroid(e, c.year); ok {
			c.engrave.ScheduleStart(engrave.Target{ID: id, Name: e.Name, Centroid: centroid}, engrave.StartDelay)
		}
	default:
		c.engrave.Stop()
		if b, ok := camera.CombinedBounds(visible, c.year, c.catalog.Get); ok {
			c.camera.ScheduleFocus(b, false)
		}
	}
}

// Select hit-tests pt against the drawn entities and returns the first hit.
func (c *Controller) Select(pt geo.Position) (*model.Empire, bool) {
	if c.disposed {
		return nil, false
	}
	var layers []string
	for _, id := range c.sync.Active() {
		layers = append(layers, render.FillLayerID(id))
	}
	for _, layer := range c.surface.QueryRendered(pt, layers) {
		id, ok := render.EntityFromLayer(layer)
		if !ok {
			continue
		}
		e, ok := c.catalog.Get(id)
		if !ok {
			continue
		}
		for _, fn := range c.selectedHooks {
			fn(e)
		}
		return e, true
	}
	return nil, false
}

// Year returns the last drawn year.
func (c *Controller) Year() int { return c.year }

// Focus reports whether focus mode is on.
func (c *Controller) Focus() bool { return c.focus }

// Visible returns the ids visible at the last drawn year.
func (c *Controller) Visible() []string { return slices.Clone(c.visible) }

// Active returns the ids currently drawn, including ones fading out.
func (c *Controller) Active() []string { return c.sync.Active() }

// Fader exposes the fade animator, mostly for inspection.
func (c *Controller) Fader() *fade.Animator { return c.fader }

// Camera exposes the camera scheduler.
func (c *Controller) Camera() *camera.Scheduler { return c.camera }

// Engrave exposes the engrave effect.
func (c *Controller) Engrave() *engrave.Effect { return c.engrave }

// Dispose cancels every timer and animation. Later calls are no-ops.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.engrave.Dispose()
	c.camera.Dispose()
	c.fader.Dispose()
}

func (c *Controller) notifyVisible() {
	ids := slices.Clone(c.visible)
	for _, fn := range c.visibleHooks {
		fn(c.year, ids)
	}
}

func (c *Controller) addLabelLayer(sourceID string, l render.Layer) {
	if !c.surface.HasSource(sourceID) {
		if err := c.surface.AddSource(sourceID, geo.NewCollection()); err != nil {
			c.log.Debug("add label source", zap.String("source", sourceID), zap.Error(err))
			return
		}
	}
	if c.surface.HasLayer(l.ID) {
		return
	}
	l.Source = sourceID
	if err := c.surface.AddLayer(l); err != nil {
		c.log.Debug("add label layer", zap.String("layer", l.ID), zap.Error(err))
	}
}

func (c *Controller) updateNames() {
	var features []geo.Feature
	for _, id := range c.visibleNow() {
		e, ok := c.catalog.Get(id)
		if !ok {
			continue
		}
		p, ok := camera.Centroid(e, c.year)
		if !ok {
			continue
		}
		features = append(features, geo.NewFeature(geo.PointGeometry(p), map[string]any{
			"name":  e.Name,
			"color": e.Color,
		}))
	}
	render.SetData(c.surface, NameSourceID, geo.NewCollection(features...))
}

func (c *Controller) updatePlaces() {
	var features []geo.Feature
	for _, p := range store.PlacesAt(c.places, c.year) {
		features = append(features, geo.NewFeature(geo.PointGeometry(p.Coordinates), map[string]any{
			"name": p.Name,
		}))
	}
	render.SetData(c.surface, PlaceSourceID, geo.NewCollection(features...))
}

// visibleNow lists resident ids with geometry at the current year, without
// touching the synchronizer's state.
func (c *Controller) visibleNow() []string {
	var ids []string
	for _, id := range c.catalog.VisibleIDs(c.year) {
		e, ok := c.catalog.Get(id)
		if ok && e.ActiveSlice(c.year) != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}
