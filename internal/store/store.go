// Package store is the data-loading collaborator. It indexes the manifest
// in an in-memory DuckDB catalog, answers "who is active in year Y" from a
// per-year cache and loads entity files asynchronously into an explicit
// entity cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/model"
)

const (
	ManifestFile = "manifest.json"
	PlacesFile   = "places.json"
)

// ErrNotFound is returned for ids, files or places the dataset lacks.
var ErrNotFound = errors.New("not found")

// Store manages the manifest catalog and the entity cache.
type Store struct {
	DB  *sql.DB
	src Source
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	manifest []model.ManifestEntry
	visible  map[int][]string
	cache    map[string]*model.Empire
	loading  map[string]bool
	stale    map[string]bool
	onLoad   []func(id string, err error)
	places   []model.Place
}

// New opens an in-memory DuckDB catalog over src.
func New(src Source, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	// Each connection to an in-memory DuckDB is its own database.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		DB:      db,
		src:     src,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		visible: make(map[int][]string),
		cache:   make(map[string]*model.Empire),
		loading: make(map[string]bool),
		stale:   make(map[string]bool),
	}
	if err := s.migrate(); err != nil {
		cancel()
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close stops in-flight loads and closes the catalog.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.DB.Close()
}

// Source returns the dataset source.
func (s *Store) Source() Source { return s.src }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS manifest (
			id TEXT PRIMARY KEY,
			ord INTEGER NOT NULL,
			name TEXT,
			era TEXT,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS slices (
			empire_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL,
			area DOUBLE NOT NULL,
			PRIMARY KEY (empire_id, idx)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// LoadManifest reads the manifest and replaces the catalog with it.
func (s *Store) LoadManifest(ctx context.Context) ([]model.ManifestEntry, error) {
	rc, err := s.src.Open(ctx, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	defer rc.Close()

	var entries []model.ManifestEntry
	if err := json.NewDecoder(rc).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := s.writeManifest(ctx, entries); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.manifest = entries
	clear(s.visible)
	s.mu.Unlock()

	s.log.Info("manifest loaded", zap.Int("entries", len(entries)), zap.Stringer("source", s.src))
	return entries, nil
}

func (s *Store) writeManifest(ctx context.Context, entries []model.ManifestEntry) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM manifest"); err != nil {
		return fmt.Errorf("clearing manifest: %w", err)
	}
	for i, e := range entries {
		if e.StartYear > e.EndYear {
			return fmt.Errorf("manifest entry %s: start %d after end %d", e.ID, e.StartYear, e.EndYear)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO manifest (id, ord, name, era, start_year, end_year) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, i, e.Name, string(e.Era), e.StartYear, e.EndYear); err != nil {
			return fmt.Errorf("inserting manifest entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Manifest returns the loaded manifest entries in order.
func (s *Store) Manifest() []model.ManifestEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ManifestEntry(nil), s.manifest...)
}

// Entry returns the manifest entry for id.
func (s *Store) Entry(id string) (model.ManifestEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.manifest {
		if e.ID == id {
			return e, true
		}
	}
	return model.ManifestEntry{}, false
}

// VisibleIDs returns, in manifest order, the ids whose manifest span covers
// year (both ends inclusive). Results are cached per year until the
// manifest is reloaded and shared between callers, who must not modify
// them. Catalog errors are logged and yield an empty set.
func (s *Store) VisibleIDs(year int) []string {
	s.mu.RLock()
	ids, ok := s.visible[year]
	s.mu.RUnlock()
	if ok {
		return ids
	}

	ids, err := s.queryVisible(year)
	if err != nil {
		s.log.Warn("visible query failed", zap.Int("year", year), zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.visible[year] = ids
	s.mu.Unlock()
	return ids
}

func (s *Store) queryVisible(year int) ([]string, error) {
	rows, err := s.DB.Query("SELECT id FROM manifest WHERE start_year <= ? AND ? <= end_year ORDER BY ord", year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
