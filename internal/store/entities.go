package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/model"
)

// OnLoad registers fn to be told when an entity finishes loading (err nil)
// or fails to load. fn runs on the loading goroutine.
func (s *Store) OnLoad(fn func(id string, err error)) {
	s.mu.Lock()
	s.onLoad = append(s.onLoad, fn)
	s.mu.Unlock()
}

func (s *Store) notify(id string, err error) {
	s.mu.RLock()
	fns := slices.Clone(s.onLoad)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(id, err)
	}
}

// Get returns the resident entity for id without loading it.
func (s *Store) Get(id string) (*model.Empire, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cache[id]
	return e, ok
}

// Resident returns the number of cached entities.
func (s *Store) Resident() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Load starts fetching id in the background unless it is resident or
// already loading. Completion is reported through OnLoad.
func (s *Store) Load(id string) { s.load(id, false) }

// Reload evicts id and fetches it again. A reload requested while a fetch
// is in flight restarts that fetch once it returns, so the result always
// reflects the file as it was after the request.
func (s *Store) Reload(id string) { s.load(id, true) }

func (s *Store) load(id string, force bool) {
	s.mu.Lock()
	if s.loading[id] {
		if force {
			s.stale[id] = true
		}
		s.mu.Unlock()
		return
	}
	if _, ok := s.cache[id]; ok && !force {
		s.mu.Unlock()
		return
	}
	delete(s.cache, id)
	s.loading[id] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.fetchInBackground(id)
}

func (s *Store) fetchInBackground(id string) {
	defer s.wg.Done()
	for {
		e, err := s.Fetch(s.ctx, id)

		s.mu.Lock()
		if s.stale[id] && s.ctx.Err() == nil {
			delete(s.stale, id)
			s.mu.Unlock()
			continue
		}
		delete(s.stale, id)
		delete(s.loading, id)
		if err == nil {
			s.cache[id] = e
		}
		s.mu.Unlock()

		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("entity load failed", zap.String("id", id), zap.Error(err))
		} else {
			s.log.Debug("entity loaded", zap.String("id", id), zap.Int("slices", len(e.Geometries)))
		}
		s.notify(id, err)
		return
	}
}

// LoadAll fetches every manifest entity synchronously into the cache.
// OnLoad callbacks fire for each entity it adds.
func (s *Store) LoadAll(ctx context.Context) error {
	for _, entry := range s.Manifest() {
		if _, ok := s.Get(entry.ID); ok {
			continue
		}
		e, err := s.Fetch(ctx, entry.ID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.cache[entry.ID] = e
		s.mu.Unlock()
		s.notify(entry.ID, nil)
	}
	return nil
}

// Evict drops id from the cache so the next Load fetches it again.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// Fetch reads and decodes <id>.json without touching the cache. Slice areas
// are computed here once so nothing downstream recomputes them.
func (s *Store) Fetch(ctx context.Context, id string) (*model.Empire, error) {
	rc, err := s.src.Open(ctx, id+".json")
	if err != nil {
		return nil, fmt.Errorf("loading empire %s: %w", id, err)
	}
	defer rc.Close()

	var e model.Empire
	if err := json.NewDecoder(rc).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding empire %s: %w", id, err)
	}
	if err := s.prepare(ctx, id, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) prepare(ctx context.Context, id string, e *model.Empire) error {
	if e.ID == "" {
		e.ID = id
	}
	if e.ID != id {
		return fmt.Errorf("empire file %s.json declares id %q", id, e.ID)
	}
	e.Normalize()
	if len(e.Geometries) == 0 {
		return fmt.Errorf("empire %s has no geometry slices", id)
	}
	for i := range e.Geometries {
		g := &e.Geometries[i]
		if g.StartYear > g.EndYear {
			return fmt.Errorf("empire %s slice %d: start %d after end %d", id, i, g.StartYear, g.EndYear)
		}
		if g.PrecomputedArea <= 0 {
			g.PrecomputedArea = g.Shape.Area()
		}
	}
	span, _ := e.Span()
	e.StartYear, e.EndYear = span.StartYear, span.EndYear

	for _, pair := range e.Overlaps() {
		a, b := e.Geometries[pair[0]], e.Geometries[pair[1]]
		s.log.Warn("overlapping geometry slices; first match wins",
			zap.String("id", id),
			zap.Int("first_start", a.StartYear), zap.Int("first_end", a.EndYear),
			zap.Int("second_start", b.StartYear), zap.Int("second_end", b.EndYear))
	}

	return s.writeSlices(ctx, e)
}

func (s *Store) writeSlices(ctx context.Context, e *model.Empire) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM slices WHERE empire_id = ?", e.ID); err != nil {
		return fmt.Errorf("clearing slices of %s: %w", e.ID, err)
	}
	for i, g := range e.Geometries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO slices (empire_id, idx, start_year, end_year, area) VALUES (?, ?, ?, ?, ?)",
			e.ID, i, g.StartYear, g.EndYear, g.PrecomputedArea); err != nil {
			return fmt.Errorf("inserting slice %d of %s: %w", i, e.ID, err)
		}
	}
	return tx.Commit()
}

// Places returns the historical places, reading them on first use.
func (s *Store) Places(ctx context.Context) ([]model.Place, error) {
	s.mu.RLock()
	places := s.places
	s.mu.RUnlock()
	if places != nil {
		return places, nil
	}

	rc, err := s.src.Open(ctx, PlacesFile)
	if err != nil {
		return nil, fmt.Errorf("loading places: %w", err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}
	if places == nil {
		places = []model.Place{}
	}

	s.mu.Lock()
	s.places = places
	s.mu.Unlock()
	return places, nil
}

// PlacesAt returns the places that carry a name at year.
func PlacesAt(places []model.Place, year int) []NamedPlace {
	var out []NamedPlace
	for _, p := range places {
		if name := p.NameAt(year); name != "" {
			out = append(out, NamedPlace{ID: p.ID, Name: name, Coordinates: p.Coordinates})
		}
	}
	return out
}

// NamedPlace is a place with the name it carries in one year.
type NamedPlace struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Coordinates geo.Position `json:"coordinates"`
}
