// Package memory provides an in-memory BlobStore. It is the default
// local cache in tests and for ephemeral sessions.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// Store implements ports.BlobStore in memory. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put stores a copy of value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	return nil
}

// Get returns a copy of the stored value so callers cannot mutate store
// contents through the returned slice.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, flow.ErrCacheMiss
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys lists keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
