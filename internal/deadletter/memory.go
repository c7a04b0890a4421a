package deadletter

import (
	"context"
	"sync"

	"github.com/petrijr/taskhub/pkg/api"
)

// MemoryStore is a goroutine-safe Store backed by a map. Its contents are
// lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	letters map[string]*api.DeadLetter
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{letters: make(map[string]*api.DeadLetter)}
}

func (s *MemoryStore) Put(_ context.Context, dl *api.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *dl
	s.letters[dl.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*api.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dl, ok := s.letters[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *dl
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*api.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.DeadLetter
	for _, dl := range s.letters {
		if !filter.match(dl) {
			continue
		}
		copied := *dl
		result = append(result, &copied)
	}
	sortByTime(result)
	return result, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.letters[id]; !ok {
		return ErrNotFound
	}
	delete(s.letters, id)
	return nil
}
