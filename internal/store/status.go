package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/intelligrit/chronomap/internal/model"
)

// Stats summarises the catalog.
type Stats struct {
	Entities     int
	ByEra        map[string]int
	EarliestYear int
	LatestYear   int
	Resident     int
	Slices       int
	TotalArea    float64
}

// Stats aggregates the manifest and the slices of resident entities.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByEra: make(map[string]int), Resident: s.Resident()}

	var earliest, latest sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(start_year), MAX(end_year) FROM manifest").
		Scan(&st.Entities, &earliest, &latest)
	if err != nil {
		return st, fmt.Errorf("counting manifest: %w", err)
	}
	st.EarliestYear, st.LatestYear = int(earliest.Int64), int(latest.Int64)

	rows, err := s.DB.QueryContext(ctx,
		"SELECT COALESCE(NULLIF(era, ''), 'unknown'), COUNT(*) FROM manifest GROUP BY 1 ORDER BY 1")
	if err != nil {
		return st, fmt.Errorf("counting eras: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var era string
		var n int
		if err := rows.Scan(&era, &n); err != nil {
			return st, err
		}
		st.ByEra[era] = n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = s.DB.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(area), 0) FROM slices").
		Scan(&st.Slices, &st.TotalArea)
	if err != nil {
		return st, fmt.Errorf("counting slices: %w", err)
	}
	return st, nil
}

// Issue is a data problem found by Validate.
type Issue struct {
	ID      string
	Message string
}

func (i Issue) String() string {
	if i.ID == "" {
		return i.Message
	}
	return i.ID + ": " + i.Message
}

// Validate fetches every manifest entity and reports problems: files that
// fail to load, overlapping slices, manifest spans that disagree with the
// slices, and entity files missing from the manifest.
func (s *Store) Validate(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	listed := make(map[string]bool)

	for _, entry := range s.Manifest() {
		listed[entry.ID+".json"] = true
		e, err := s.Fetch(ctx, entry.ID)
		if err != nil {
			if ctx.Err() != nil {
				return issues, ctx.Err()
			}
			issues = append(issues, Issue{ID: entry.ID, Message: err.Error()})
			continue
		}
		for _, pair := range e.Overlaps() {
			a, b := e.Geometries[pair[0]], e.Geometries[pair[1]]
			issues = append(issues, Issue{ID: entry.ID, Message: fmt.Sprintf(
				"slices %d..%d and %d..%d overlap", a.StartYear, a.EndYear, b.StartYear, b.EndYear)})
		}
		if e.StartYear != entry.StartYear || e.EndYear != entry.EndYear {
			issues = append(issues, Issue{ID: entry.ID, Message: fmt.Sprintf(
				"manifest span %d..%d differs from slices %d..%d",
				entry.StartYear, entry.EndYear, e.StartYear, e.EndYear)})
		}
	}

	files, err := s.src.List(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return issues, fmt.Errorf("listing source: %w", err)
	}
	for _, f := range files {
		if !listed[f] {
			issues = append(issues, Issue{Message: fmt.Sprintf("%s is not in the manifest", f)})
		}
	}
	return issues, nil
}

// Gaps returns the year ranges between consecutive slices of e that no
// slice covers. The entity is invisible during a gap.
func Gaps(e *model.Empire) []model.YearRange {
	var gaps []model.YearRange
	for i := 1; i < len(e.Geometries); i++ {
		prev, cur := e.Geometries[i-1], e.Geometries[i]
		if cur.StartYear > prev.EndYear+1 {
			gaps = append(gaps, model.YearRange{StartYear: prev.EndYear + 1, EndYear: cur.StartYear - 1})
		}
	}
	return gaps
}
