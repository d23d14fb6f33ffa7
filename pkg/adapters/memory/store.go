package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Store implements ports.ProgressStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Progress
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Progress),
	}
}

// Save persists a copy of the progress document.
func (s *Store) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	copied := progress.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[profileID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored document by pointer.
func (s *Store) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress, ok := s.data[profileID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return progress.Clone(), nil
}

// Delete removes the progress document.
func (s *Store) Delete(ctx context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, profileID)
	return nil
}

// List returns the stored profile ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]string, 0, len(s.data))
	for id := range s.data {
		profiles = append(profiles, id)
	}
	sort.Strings(profiles)
	return profiles, nil
}
