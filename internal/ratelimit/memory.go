package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process counter store for tests and single-instance
// development runs. Production deployments use the valkey store so counters
// are shared across replicas.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	count int64
	reset time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok || now.After(e.reset) {
		e = &memoryEntry{reset: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.reset, nil
}
