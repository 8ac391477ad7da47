package updates

import (
	"context"
	"sync"
)

// MemoryStore is a process-local FlagStore for single-instance deployments
// and tests.
type MemoryStore struct {
	mu    sync.Mutex
	flags map[string]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]struct{})}
}

func (s *MemoryStore) Set(_ context.Context, restaurantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[restaurantID] = struct{}{}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, restaurantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[restaurantID]; !ok {
		return false, nil
	}
	delete(s.flags, restaurantID)
	return true, nil
}
