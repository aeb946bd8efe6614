// Package embedcache caches embedding vectors in front of an embedding
// provider. Embeddings are deterministic for a fixed model, so each distinct
// text is computed once and reused across restarts and consumers through a
// pluggable byte store. Keys are content hashes scoped by a namespace,
// typically the model identifier.
package embedcache

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/botirk38/embedcache/codec"
	"github.com/botirk38/embedcache/keys"
	"github.com/botirk38/embedcache/options"
	"github.com/botirk38/embedcache/types"
)

// purgeBatchSize bounds each Delete call issued by PurgeNamespace.
const purgeBatchSize = 256

// CacheBackedEmbedder wraps an embedding provider and a ByteStore. It owns no
// persistent state itself; both collaborators are supplied externally and may
// be shared with other consumers. Concurrent callers are safe: no lock is held
// across the provider call, racing writers on one key resolve last-write-wins.
type CacheBackedEmbedder struct {
	provider   types.EmbeddingProvider
	store      types.ByteStore
	queryStore types.ByteStore
	enc        keys.Encoder
	logger     zerolog.Logger

	recomputeOnReadError bool
}

// New creates a CacheBackedEmbedder with functional options. A provider and a
// document store are required; configuration errors fail here, before any call.
func New(opts ...options.Option) (*CacheBackedEmbedder, error) {
	cfg := options.NewConfig()

	if err := cfg.Apply(opts...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &CacheBackedEmbedder{
		provider:             cfg.Provider,
		store:                cfg.Store,
		queryStore:           cfg.QueryStore,
		enc:                  keys.Encoder{Namespace: cfg.Namespace},
		logger:               cfg.Logger,
		recomputeOnReadError: cfg.RecomputeOnReadError,
	}, nil
}

// NewCacheBackedEmbedder creates an embedder with the given provider, document
// store and namespace. An empty namespace is valid and means no isolation; the
// caller then carries the burden of avoiding collisions across models.
func NewCacheBackedEmbedder(provider types.EmbeddingProvider, store types.ByteStore, namespace string) (*CacheBackedEmbedder, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	return &CacheBackedEmbedder{
		provider: provider,
		store:    store,
		enc:      keys.Encoder{Namespace: namespace},
		logger:   zerolog.Nop(),
	}, nil
}

// Namespace returns the embedder's cache namespace.
func (e *CacheBackedEmbedder) Namespace() string {
	return e.enc.Namespace
}

// EmbedDocuments returns one vector per input text, in input order. Cached
// vectors are read from the store; only the texts without an entry reach the
// provider, as a single call in their original relative order, and their
// vectors are written back before returning. Duplicate texts collapse to one
// provider input and fan back out to every matching position. Any failure
// aborts the whole call: the output is never partially populated.
func (e *CacheBackedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, e.store, texts)
}

// EmbedQuery returns the vector for a single query text. With a query store
// configured it runs the same cached flow against it; otherwise it delegates
// straight to the provider, uncached, since query embeddings are rarely worth
// persisting.
func (e *CacheBackedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.queryStore == nil {
		vectors, err := e.provider.EmbedTexts(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("provider returned %d embeddings for 1 input", len(vectors))
		}
		return vectors[0], nil
	}

	vectors, err := e.embed(ctx, e.queryStore, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Keys returns a lazy sequence of this embedder's cache keys currently in the
// document store. Each call reflects store state at iteration time.
func (e *CacheBackedEmbedder) Keys(ctx context.Context) iter.Seq2[string, error] {
	return e.store.YieldKeys(ctx, e.enc.Prefix())
}

// PurgeNamespace deletes every entry in this embedder's namespace from the
// document store and returns the number of deleted keys. Entries of other
// namespaces sharing the store are untouched.
func (e *CacheBackedEmbedder) PurgeNamespace(ctx context.Context) (int, error) {
	deleted := 0
	batch := make([]string, 0, purgeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.store.Delete(ctx, batch); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for key, err := range e.store.YieldKeys(ctx, e.enc.Prefix()) {
		if err != nil {
			return deleted, fmt.Errorf("%w: %w", ErrStoreRead, err)
		}
		batch = append(batch, key)
		if len(batch) == purgeBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	e.logger.Debug().Str("namespace", e.enc.Namespace).Int("deleted", deleted).Msg("purged namespace")
	return deleted, nil
}

// Close releases the provider and both stores.
func (e *CacheBackedEmbedder) Close() error {
	e.provider.Close()
	err := e.store.Close()
	if e.queryStore != nil {
		if qerr := e.queryStore.Close(); err == nil {
			err = qerr
		}
	}
	return err
}

// embed runs the get/compute/put protocol against the given store.
func (e *CacheBackedEmbedder) embed(ctx context.Context, store types.ByteStore, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	// Deduplicate while recording which distinct text each position refers to.
	distinct := make([]string, 0, len(texts))
	index := make(map[string]int, len(texts))
	positions := make([]int, len(texts))
	for i, text := range texts {
		j, ok := index[text]
		if !ok {
			j = len(distinct)
			index[text] = j
			distinct = append(distinct, text)
		}
		positions[i] = j
	}

	cacheKeys := make([]string, len(distinct))
	for i, text := range distinct {
		cacheKeys[i] = e.enc.Encode(text)
	}

	stored, err := store.MGet(ctx, cacheKeys)
	if err != nil {
		if !e.recomputeOnReadError {
			return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
		}
		e.logger.Warn().Err(err).Msg("store read failed, recomputing whole batch")
		stored = make([][]byte, len(cacheKeys))
	}

	// Partition into hits and misses, misses keeping original relative order.
	// Present-but-invalid bytes are a corruption signal, not a miss.
	vectors := make([][]float32, len(distinct))
	var missIdx []int
	for i, data := range stored {
		if data == nil {
			missIdx = append(missIdx, i)
			continue
		}
		vec, err := codec.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", cacheKeys[i], err)
		}
		vectors[i] = vec
	}

	if len(missIdx) > 0 {
		missTexts := make([]string, len(missIdx))
		for j, i := range missIdx {
			missTexts[j] = distinct[i]
		}

		computed, err := e.provider.EmbedTexts(ctx, missTexts)
		if err != nil {
			// Provider errors propagate verbatim; nothing was written.
			return nil, err
		}
		if len(computed) != len(missTexts) {
			return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(computed), len(missTexts))
		}

		pairs := make([]types.KV, len(missIdx))
		for j, i := range missIdx {
			vectors[i] = computed[j]
			pairs[j] = types.KV{Key: cacheKeys[i], Value: codec.Marshal(computed[j])}
		}
		if err := store.MSet(ctx, pairs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
	}

	e.logger.Debug().
		Str("namespace", e.enc.Namespace).
		Int("texts", len(texts)).
		Int("distinct", len(distinct)).
		Int("misses", len(missIdx)).
		Msg("embedded batch")

	out := make([][]float32, len(texts))
	for i, j := range positions {
		out[i] = vectors[j]
	}
	return out, nil
}
