package sequence

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Increment(_ context.Context, key string, by int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] += by
	return s.values[key], nil
}

// Value returns the current counter value, zero when unset.
func (s *MemoryStore) Value(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}
