// Package recipients provides the directories that list who gets notified.
package recipients

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
)

type staticFile struct {
	Recipients []models.Recipient `yaml:"recipients"`
}

// Static serves recipients from a YAML file and can hot-reload it.
type Static struct {
	path   string
	logger logger.Logger

	mu      sync.RWMutex
	current []models.Recipient
}

// NewStatic loads the file once; a missing or invalid file is an error.
func NewStatic(path string, log logger.Logger) (*Static, error) {
	s := &Static{path: path, logger: log}
	list, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = list
	return s, nil
}

func (s *Static) Recipients(context.Context) ([]models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Recipient(nil), s.current...), nil
}

// Reload re-reads the file. On error the previous list is kept.
func (s *Static) Reload() error {
	list, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = list
	s.mu.Unlock()
	s.logger.Info("Recipients reloaded", map[string]interface{}{
		"path":  s.path,
		"count": len(list),
	})
	return nil
}

// Watch reloads the file whenever it is written or replaced until stop is
// called. The parent directory is watched so editors that save by renaming a
// temp file over the original keep triggering reloads.
func (s *Static) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("recipients watcher: %w", err)
	}
	target := filepath.Clean(s.path)
	dir := filepath.Dir(target)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("recipients watcher add %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if err := s.Reload(); err != nil {
						s.logger.Warn("Keeping previous recipients", map[string]interface{}{
							"path":  s.path,
							"error": err.Error(),
						})
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Recipients watcher error", map[string]interface{}{"error": err.Error()})
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func (s *Static) load() ([]models.Recipient, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read recipients %s: %w", s.path, err)
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse recipients %s: %w", s.path, err)
	}

	seen := make(map[string]bool, len(f.Recipients))
	for i, r := range f.Recipients {
		if r.ID == "" {
			return nil, fmt.Errorf("recipients %s: entry %d has no id", s.path, i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("recipients %s: duplicate id %q", s.path, r.ID)
		}
		seen[r.ID] = true
	}
	return f.Recipients, nil
}
