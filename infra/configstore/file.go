// Package configstore provides a file-backed view of printer targets and
// assignments. The file is owned by the admin tooling; this module only
// reads it and picks up edits live via fsnotify.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/model"
)

type document struct {
	Printers    []model.PrinterTarget `json:"printers"`
	Assignments []model.Assignment    `json:"assignments"`
}

// FileStore implements assign.Store from a JSON document on disk.
type FileStore struct {
	path string
	log  logger.Logger

	mu          sync.RWMutex
	targets     map[string]model.PrinterTarget
	order       []string // target ids in file order
	assignments []model.Assignment
	ready       bool

	watcher *fsnotify.Watcher
}

// NewFileStore loads the document at path. The returned store is ready once
// the initial load succeeds.
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	s := &FileStore{path: path, log: log}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read printer config: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse printer config: %w", err)
	}
	targets := make(map[string]model.PrinterTarget, len(doc.Printers))
	order := make([]string, 0, len(doc.Printers))
	for _, t := range doc.Printers {
		if err := t.Validate(); err != nil {
			return err
		}
		targets[t.ID] = t
		order = append(order, t.ID)
	}
	for i := range doc.Assignments {
		if doc.Assignments[i].Ordinal == 0 {
			doc.Assignments[i].Ordinal = i + 1
		}
	}
	s.mu.Lock()
	s.targets = targets
	s.order = order
	s.assignments = doc.Assignments
	s.ready = true
	s.mu.Unlock()
	return nil
}

// Watch reloads the document whenever the file changes. It returns once the
// watcher is installed; reloads happen in the background until Close.
func (s *FileStore) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.path); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.load(); err != nil {
					s.log.Errorf("printer config reload failed: %v", err)
					continue
				}
				s.log.Infof("printer config reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Errorf("printer config watcher: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (s *FileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// ActiveTargets returns the active printer targets in file order.
func (s *FileStore) ActiveTargets() []model.PrinterTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PrinterTarget
	for _, id := range s.order {
		if t := s.targets[id]; t.Active {
			out = append(out, t)
		}
	}
	return out
}

// TargetByID looks up a printer target.
func (s *FileStore) TargetByID(id string) (model.PrinterTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[id]
	return t, ok
}

// Assignments returns all assignment rules.
func (s *FileStore) Assignments() []model.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Assignment(nil), s.assignments...)
}

// Ready reports whether the initial load succeeded.
func (s *FileStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
