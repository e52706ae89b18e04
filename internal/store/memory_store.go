package store

import (
	"context"
	"sync"

	"github.com/cartable-app/cartable/pkg/constants"
)

// memoryStore keeps state in-process. It is the default driver and the one
// tests use.
type memoryStore struct {
	mu     sync.RWMutex
	values map[constants.StateKey]string
}

// NewMemoryStore creates an in-memory StateStore.
func NewMemoryStore() StateStore {
	return &memoryStore{values: make(map[constants.StateKey]string)}
}

func (s *memoryStore) Get(_ context.Context, key constants.StateKey) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key constants.StateKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...constants.StateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *memoryStore) Close() error { return nil }
