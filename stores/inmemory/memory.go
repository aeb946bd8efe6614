// Package inmemory provides process-local store backends. State lives only for
// the process lifetime, so these are primarily for tests and hot working sets;
// losing the cache on restart defeats the point of persistent caching.
package inmemory

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/botirk38/embedcache/types"
)

// MemoryStore implements ByteStore with a plain map. Unbounded.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// MGet returns one value per key in request order, nil for absent keys.
func (s *MemoryStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]byte, len(keys))
	for i, key := range keys {
		if v, ok := s.entries[key]; ok {
			out[i] = v
		}
	}
	return out, nil
}

// MSet stores all pairs, overwriting silently. Values are copied so later
// caller mutation cannot corrupt a stored entry.
func (s *MemoryStore) MSet(ctx context.Context, pairs []types.KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pairs {
		v := make([]byte, len(p.Value))
		copy(v, p.Value)
		s.entries[p.Key] = v
	}
	return nil
}

// Exists reports presence per key in request order.
func (s *MemoryStore) Exists(ctx context.Context, keys []string) ([]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bool, len(keys))
	for i, key := range keys {
		_, out[i] = s.entries[key]
	}
	return out, nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// YieldKeys iterates over a snapshot of the keys taken at call time.
func (s *MemoryStore) YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.RLock()
		snapshot := make([]string, 0, len(s.entries))
		for key := range s.entries {
			if strings.HasPrefix(key, prefix) {
				snapshot = append(snapshot, key)
			}
		}
		s.mu.RUnlock()

		for _, key := range snapshot {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
