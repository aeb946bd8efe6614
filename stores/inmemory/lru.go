package inmemory

import (
	"context"
	"errors"
	"iter"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/botirk38/embedcache/types"
)

// lruCache is the subset of the hashicorp LRU API shared by the plain and the
// expirable variant.
type lruCache interface {
	Get(key string) ([]byte, bool)
	Add(key string, value []byte) bool
	Remove(key string) bool
	Contains(key string) bool
	Keys() []string
}

// LRUStore implements ByteStore on a capacity-capped LRU cache. Eviction under
// capacity pressure looks exactly like expiry to callers: an evicted key is
// indistinguishable from one never written. With a TTL configured, entries
// additionally expire after the configured duration.
type LRUStore struct {
	cache lruCache
}

// NewLRUStore creates an LRU store with the configured capacity and optional
// TTL.
func NewLRUStore(config types.StoreConfig) (*LRUStore, error) {
	if config.Capacity <= 0 {
		return nil, errors.New("lru store requires a positive capacity")
	}
	if config.TTL > 0 {
		return &LRUStore{cache: expirable.NewLRU[string, []byte](config.Capacity, nil, config.TTL)}, nil
	}
	cache, err := lru.New[string, []byte](config.Capacity)
	if err != nil {
		return nil, err
	}
	return &LRUStore{cache: cache}, nil
}

// MGet returns one value per key in request order, nil for absent keys.
func (s *LRUStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if v, ok := s.cache.Get(key); ok {
			out[i] = v
		}
	}
	return out, nil
}

// MSet stores all pairs, copying values.
func (s *LRUStore) MSet(ctx context.Context, pairs []types.KV) error {
	for _, p := range pairs {
		v := make([]byte, len(p.Value))
		copy(v, p.Value)
		s.cache.Add(p.Key, v)
	}
	return nil
}

// Exists reports presence per key without affecting recency.
func (s *LRUStore) Exists(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, key := range keys {
		out[i] = s.cache.Contains(key)
	}
	return out, nil
}

// Delete removes the given keys.
func (s *LRUStore) Delete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.cache.Remove(key)
	}
	return nil
}

// YieldKeys iterates over a snapshot of the keys taken at call time, least
// recently used first.
func (s *LRUStore) YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, key := range s.cache.Keys() {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

// Close is a no-op for the LRU store.
func (s *LRUStore) Close() error { return nil }
