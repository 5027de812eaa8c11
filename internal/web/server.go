package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/atlas"
	"github.com/intelligrit/chronomap/internal/store"
)

//go:embed all:static
var staticFS embed.FS

// Server serves the atlas client, its JSON API and the live render stream.
type Server struct {
	Store   *store.Store
	Session *atlas.Session
	Addr    string
	Log     *zap.Logger

	hub *Hub
}

// Handler builds the route table. The websocket route is only mounted when
// a session is attached.
func (s *Server) Handler() (http.Handler, error) {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/manifest", s.handleManifest)
	mux.HandleFunc("GET /api/empires/{id}", s.handleEmpire)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/chapters", s.handleChapters)
	mux.HandleFunc("GET /api/places", s.handlePlaces)

	if s.Session != nil {
		if s.hub == nil {
			s.hub = NewHub(s.Session, s.Log.Named("hub"))
		}
		mux.HandleFunc("GET /api/status", s.handleStatus)
		mux.Handle("GET /ws", s.hub)
	}

	// Static files
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating sub filesystem: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSub)))
	return mux, nil
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: s.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.Log.Info("serving", zap.String("url", "http://"+s.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
