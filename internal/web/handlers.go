package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/coexist"
	"github.com/intelligrit/chronomap/internal/store"
	"github.com/intelligrit/chronomap/internal/timeline"
)

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Store.Manifest())
}

func (s *Server) handleEmpire(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if e, ok := s.Store.Get(id); ok {
		writeJSON(w, e)
		return
	}
	if _, ok := s.Store.Entry(id); !ok {
		http.Error(w, "unknown empire "+strconv.Quote(id), http.StatusNotFound)
		return
	}

	e, err := s.Store.Fetch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.Log.Warn("fetching empire", zap.String("id", id), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, e)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	// Reports cover every active entity, so make them all resident first.
	if err := s.Store.LoadAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, coexist.ForYear(s.Store, year))
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, timeline.Chapters)
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	places, err := s.Store.Places(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Filter by year: only places carrying a name then, under that name.
	if r.URL.Query().Get("year") != "" {
		year, ok := yearParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, store.PlacesAt(places, timeline.Floor(year)))
		return
	}
	writeJSON(w, places)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Status())
}

func yearParam(w http.ResponseWriter, r *http.Request) (float64, bool) {
	year, err := strconv.ParseFloat(r.URL.Query().Get("year"), 64)
	if err != nil {
		http.Error(w, "invalid 'year' parameter", http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	// Wildcard CORS: this is a local tool, not a public API.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if v == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
