package snapshot

import (
	"context"
	"sync"

	"github.com/shortstrade/feedcore/internal/model"
)

// MemoryStore is a process-local Store. State does not survive a restart,
// which matches the default single-session deployment.
type MemoryStore struct {
	mu      sync.Mutex
	history map[string]map[string]model.CachedSeries
	seen    map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: make(map[string]map[string]model.CachedSeries),
		seen:    make(map[string][]string),
	}
}

func (s *MemoryStore) SaveHistory(_ context.Context, session string, entries map[string]model.CachedSeries) error {
	copied := make(map[string]model.CachedSeries, len(entries))
	for k, v := range entries {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[session] = copied
	return nil
}

func (s *MemoryStore) LoadHistory(_ context.Context, session string) (map[string]model.CachedSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, ok := s.history[session]
	if !ok {
		return nil, nil
	}
	copied := make(map[string]model.CachedSeries, len(saved))
	for k, v := range saved {
		copied[k] = v
	}
	return copied, nil
}

func (s *MemoryStore) SaveSeenKeys(_ context.Context, session string, keys []string) error {
	copied := make([]string, len(keys))
	copy(copied, keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[session] = copied
	return nil
}

func (s *MemoryStore) LoadSeenKeys(_ context.Context, session string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, ok := s.seen[session]
	if !ok {
		return nil, nil
	}
	copied := make([]string, len(saved))
	copy(copied, saved)
	return copied, nil
}

func (s *MemoryStore) Close() error { return nil }
