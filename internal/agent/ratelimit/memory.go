package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry is a per-key fixed window. Entries are reset in place and never
// evicted; cardinality is bounded by distinct client addresses.
type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. The read-modify-write of a
// key happens under one lock so concurrent hits are counted exactly.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	if now.After(e.resetAt) {
		e.count = 0
		e.resetAt = now.Add(window)
	}
	e.count++
	return e.count, e.resetAt, nil
}

// Len reports how many keys are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
