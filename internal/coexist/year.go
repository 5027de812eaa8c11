package coexist

import (
	"math"

	"github.com/intelligrit/chronomap/internal/model"
)

// Catalog answers which entities are active and which are resident.
type Catalog interface {
	VisibleIDs(year int) []string
	Get(id string) (*model.Empire, bool)
}

// Dominant is the largest active entity.
type Dominant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Size        float64 `json:"size"`
	YearsActive int     `json:"yearsActive"`
}

// YearReport is the summary shown beside the map.
type YearReport struct {
	Year        int                `json:"year"`
	Active      []string           `json:"active"`
	Sizes       map[string]float64 `json:"sizes,omitempty"`
	Dominant    *Dominant          `json:"dominant,omitempty"`
	Coexistence string             `json:"coexistence,omitempty"`
	GlobalFact  string             `json:"globalFact,omitempty"`
}

// ForYear builds the report for year from resident entities only; entities
// still loading are left out until they arrive.
func ForYear(c Catalog, year float64) YearReport {
	y := int(math.Floor(year))
	var active []*model.Empire
	for _, id := range c.VisibleIDs(y) {
		if e, ok := c.Get(id); ok {
			active = append(active, e)
		}
	}

	out := YearReport{Year: y, Active: make([]string, 0, len(active))}
	out.GlobalFact, _ = GlobalFact(y)
	if len(active) == 0 {
		return out
	}

	r := Build(active, y)
	for _, e := range active {
		out.Active = append(out.Active, e.ID)
	}
	out.Sizes = r.Sizes
	out.Coexistence = r.Summary()
	if d := r.Dominant; d != nil {
		out.Dominant = &Dominant{
			ID:          d.ID,
			Name:        d.Name,
			Color:       d.Color,
			Size:        r.Sizes[d.ID],
			YearsActive: y - d.StartYear,
		}
	}
	return out
}
