package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads dataset files edited under dir until ctx is done. A changed
// manifest is re-indexed and reported through OnLoad with an empty id; a
// changed <id>.json of a manifest entity is evicted and loaded again.
func (s *Store) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.log.Info("watching dataset", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reloadFile(ctx, filepath.Base(ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (s *Store) reloadFile(ctx context.Context, name string) {
	switch {
	case name == ManifestFile:
		if _, err := s.LoadManifest(ctx); err != nil {
			s.log.Warn("manifest reload failed", zap.Error(err))
			return
		}
		s.notify("", nil)
	case name == PlacesFile:
		s.mu.Lock()
		s.places = nil
		s.mu.Unlock()
		s.notify("", nil)
	case isEntityFile(name):
		id := strings.TrimSuffix(name, ".json")
		if _, ok := s.Entry(id); !ok {
			return
		}
		s.log.Info("entity file changed", zap.String("id", id))
		s.Reload(id)
	}
}
