// Package memory provides an in-process CacheStore with per-entry TTLs.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a map-backed cache. Expired entries are dropped lazily on read.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		mu:      sync.RWMutex{},
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the value if present and not expired.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, exists := s.entries[key]; exists && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

// Set stores value until ttl elapses. A non-positive ttl is rejected.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: stored, expiresAt: s.now().Add(ttl)}
	return true
}

// Delete removes key. Deleting a missing key succeeds.
func (s *Store) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return true
}

// Clear removes every entry.
func (s *Store) Clear(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return true
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
