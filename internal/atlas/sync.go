// Package atlas turns the selected year into render mutations: it diffs the
// visible entity set against what is drawn, drives fades, and decides when
// the camera and the engrave effect react.
package atlas

import (
	"sort"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/fade"
	"github.com/intelligrit/chronomap/internal/model"
	"github.com/intelligrit/chronomap/internal/render"
)

// Catalog is the data collaborator the atlas reads from. *store.Store
// satisfies it.
type Catalog interface {
	VisibleIDs(year int) []string
	Get(id string) (*model.Empire, bool)
	Load(id string)
}

// Synchronizer keeps the entity layers on a surface in step with the year.
// Methods must run on the loop goroutine.
type Synchronizer struct {
	surface render.Surface
	fader   *fade.Animator
	catalog Catalog
	log     *zap.Logger

	// active maps each drawn entity to the slice range its source holds.
	active map[string]model.YearRange
	before string
}

// NewSynchronizer returns a synchronizer drawing entity layers below the
// layer named before, when that layer exists.
func NewSynchronizer(surface render.Surface, fader *fade.Animator, catalog Catalog, before string, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		surface: surface,
		fader:   fader,
		catalog: catalog,
		log:     log,
		active:  make(map[string]model.YearRange),
		before:  before,
	}
}

// Sync reconciles the drawn layers with year and returns the ids visible at
// year in manifest order. An id is visible when it is resident and one of
// its slices covers year. Ids the manifest lists but that are not resident
// yet are requested from the catalog; they keep any layers they already
// have until their data arrives.
func (s *Synchronizer) Sync(year int) []string {
	candidates := s.catalog.VisibleIDs(year)

	keep := make(map[string]bool, len(candidates))
	var visible []string
	for _, id := range candidates {
		e, ok := s.catalog.Get(id)
		if !ok {
			keep[id] = true
			continue
		}
		if e.ActiveSlice(year) == nil {
			continue
		}
		keep[id] = true
		visible = append(visible, id)
	}

	// Exits run to completion before any entry so fade-out decisions see
	// the state from before this call.
	for _, id := range s.Active() {
		if keep[id] || s.fader.IsFadingOut(id) {
			continue
		}
		s.fader.FadeOut(id, fade.Duration, func() {
			s.removeLayers(id)
			delete(s.active, id)
		})
	}

	for _, id := range candidates {
		e, ok := s.catalog.Get(id)
		if !ok {
			s.catalog.Load(id)
			continue
		}
		slice := e.ActiveSlice(year)
		if slice == nil {
			continue
		}

		drawn, tracked := s.active[id]
		switch {
		case tracked && s.fader.IsFadingOut(id):
			s.fader.FadeIn(id, fade.Duration)
			s.refresh(id, slice, drawn)
		case tracked:
			s.refresh(id, slice, drawn)
		default:
			if !s.addLayers(e, slice) {
				continue
			}
			s.active[id] = slice.YearRange
			s.fader.FadeIn(id, fade.Duration, fade.WithHighlight())
		}
	}
	return visible
}

// Active returns the ids with layers on the surface, sorted.
func (s *Synchronizer) Active() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsActive reports whether id has layers on the surface.
func (s *Synchronizer) IsActive(id string) bool {
	_, ok := s.active[id]
	return ok
}

// refresh pushes new geometry into an existing source when the entity
// crossed into a different slice. Shape changes never fade.
func (s *Synchronizer) refresh(id string, slice *model.Slice, drawn model.YearRange) {
	if drawn == slice.YearRange {
		return
	}
	if render.SetData(s.surface, render.SourceID(id), slice.Shape) {
		s.active[id] = slice.YearRange
		s.log.Debug("geometry switched", zap.String("id", id),
			zap.Int("start", slice.StartYear), zap.Int("end", slice.EndYear))
	}
}

func (s *Synchronizer) addLayers(e *model.Empire, slice *model.Slice) bool {
	src := render.SourceID(e.ID)
	// A source left behind by an interrupted teardown is replaced.
	if s.surface.HasSource(src) {
		s.removeLayers(e.ID)
	}
	if err := s.surface.AddSource(src, slice.Shape); err != nil {
		s.log.Debug("add source", zap.String("id", e.ID), zap.Error(err))
		return false
	}

	before := ""
	if s.before != "" && s.surface.HasLayer(s.before) {
		before = s.before
	}
	fill := render.Layer{
		ID:     render.FillLayerID(e.ID),
		Kind:   render.KindFill,
		Source: src,
		Paint: map[string]any{
			"fill-color":         e.Color,
			fade.PropFillOpacity: 0.0,
		},
		Before: before,
	}
	line := render.Layer{
		ID:     render.LineLayerID(e.ID),
		Kind:   render.KindLine,
		Source: src,
		Paint: map[string]any{
			"line-color":         e.Color,
			fade.PropLineWidth:   fade.LineWidthBase,
			fade.PropLineOpacity: 0.0,
		},
		Before: before,
	}
	for _, l := range []render.Layer{fill, line} {
		if err := s.surface.AddLayer(l); err != nil {
			s.log.Debug("add layer", zap.String("layer", l.ID), zap.Error(err))
			s.removeLayers(e.ID)
			return false
		}
	}
	return true
}

func (s *Synchronizer) removeLayers(id string) {
	render.RemoveLayers(s.surface, render.FillLayerID(id), render.LineLayerID(id))
	render.RemoveSource(s.surface, render.SourceID(id))
}
