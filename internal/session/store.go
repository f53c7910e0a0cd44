package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kpi-dashboard/internal/storage"
)

// Entry is the cached output of one consolidation run.
type Entry struct {
	ID       string                       `json:"id"`
	Dataset  *storage.ConsolidatedDataset `json:"dataset"`
	LoadedAt time.Time                    `json:"loaded_at"`
}

func (e *Entry) Reports() []storage.FileReport {
	if e.Dataset == nil {
		return nil
	}
	return e.Dataset.Reports
}

// Store keeps consolidated datasets in memory until they are cleared.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{entries: map[string]*Entry{}, now: time.Now}
}

func (s *Store) Create(ds *storage.ConsolidatedDataset) (*Entry, error) {
	const op = "session.Store.Create"

	if ds == nil {
		return nil, fmt.Errorf("%s: nil dataset", op)
	}

	e := &Entry{ID: uuid.NewString(), Dataset: ds, LoadedAt: s.now()}

	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()

	return e, nil
}

func (s *Store) Get(id string) (*Entry, error) {
	const op = "session.Store.Get"

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, id, storage.ErrSessionNotFound)
	}
	return e, nil
}

func (s *Store) Clear(id string) error {
	const op = "session.Store.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%s: %q: %w", op, id, storage.ErrSessionNotFound)
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
