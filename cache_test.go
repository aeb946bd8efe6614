package embedcache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/botirk38/embedcache/codec"
	"github.com/botirk38/embedcache/keys"
	"github.com/botirk38/embedcache/options"
	"github.com/botirk38/embedcache/stores/inmemory"
	"github.com/botirk38/embedcache/types"
)

// fakeProvider computes deterministic per-text vectors and records every call.
type fakeProvider struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (p *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.calls = append(p.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = fakeVector(text)
	}
	return out, nil
}

func (p *fakeProvider) Close() {}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func fakeVector(text string) []float32 {
	vec := []float32{float32(len(text)), 0, 0}
	for i := 0; i < len(text); i++ {
		vec[1+i%2] += float32(text[i])
	}
	return vec
}

// faultyStore wraps a ByteStore with injectable read/write failures.
type faultyStore struct {
	types.ByteStore
	readErr  error
	writeErr error
}

func (s *faultyStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.ByteStore.MGet(ctx, keys)
}

func (s *faultyStore) MSet(ctx context.Context, pairs []types.KV) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.ByteStore.MSet(ctx, pairs)
}

func newTestEmbedder(t *testing.T, opts ...options.Option) (*CacheBackedEmbedder, *fakeProvider, *inmemory.MemoryStore) {
	t.Helper()
	provider := &fakeProvider{}
	store := inmemory.NewMemoryStore()
	base := []options.Option{
		options.WithProvider(provider),
		options.WithStore(store),
		options.WithNamespace("test-model"),
	}
	embedder, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}
	return embedder, provider, store
}

func TestEmbedDocumentsIdempotent(t *testing.T) {
	ctx := context.Background()
	embedder, provider, _ := newTestEmbedder(t)

	first, err := embedder.EmbedDocuments(ctx, []string{"hello"})
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}

	second, err := embedder.EmbedDocuments(ctx, []string{"hello"})
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("second call hit the provider: %d calls", provider.callCount())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
}

func TestEmbedDocumentsOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	embedder, provider, _ := newTestEmbedder(t)

	vectors, err := embedder.EmbedDocuments(ctx, []string{"a", "b", "a"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if !reflect.DeepEqual(vectors[0], vectors[2]) {
		t.Errorf("duplicate text positions differ: %v vs %v", vectors[0], vectors[2])
	}
	if !reflect.DeepEqual(vectors[0], fakeVector("a")) || !reflect.DeepEqual(vectors[1], fakeVector("b")) {
		t.Errorf("vectors mapped to wrong texts: %v", vectors)
	}

	// Duplicates collapse before the provider call
	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}
	if !reflect.DeepEqual(provider.calls[0], []string{"a", "b"}) {
		t.Errorf("provider received %v, want [a b]", provider.calls[0])
	}
}

func TestEmbedDocumentsPartialHit(t *testing.T) {
	ctx := context.Background()
	embedder, provider, store := newTestEmbedder(t)

	// Pre-populate "hello" only
	enc := keys.Encoder{Namespace: "test-model"}
	err := store.MSet(ctx, []types.KV{
		{Key: enc.Encode("hello"), Value: codec.Marshal(fakeVector("hello"))},
	})
	if err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	vectors, err := embedder.EmbedDocuments(ctx, []string{"hello", "goodbye"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}

	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}
	if !reflect.DeepEqual(provider.calls[0], []string{"goodbye"}) {
		t.Errorf("provider received %v, want [goodbye]", provider.calls[0])
	}
	if !reflect.DeepEqual(vectors[0], fakeVector("hello")) {
		t.Errorf("cached vector wrong: %v", vectors[0])
	}
	if !reflect.DeepEqual(vectors[1], fakeVector("goodbye")) {
		t.Errorf("computed vector wrong: %v", vectors[1])
	}
}

func TestEmbedDocumentsMissesKeepOrder(t *testing.T) {
	ctx := context.Background()
	embedder, provider, store := newTestEmbedder(t)

	enc := keys.Encoder{Namespace: "test-model"}
	if err := store.MSet(ctx, []types.KV{
		{Key: enc.Encode("c"), Value: codec.Marshal(fakeVector("c"))},
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	if _, err := embedder.EmbedDocuments(ctx, []string{"z", "c", "a", "m"}); err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}

	// Missed texts reach the provider in original relative order
	if !reflect.DeepEqual(provider.calls[0], []string{"z", "a", "m"}) {
		t.Errorf("provider received %v, want [z a m]", provider.calls[0])
	}
}

func TestEmbedDocumentsEmpty(t *testing.T) {
	ctx := context.Background()
	embedder, provider, _ := newTestEmbedder(t)

	vectors, err := embedder.EmbedDocuments(ctx, nil)
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected empty result, got %v", vectors)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called for empty input")
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	store := inmemory.NewMemoryStore()

	newEmbedder := func(namespace string) *CacheBackedEmbedder {
		e, err := New(
			options.WithProvider(provider),
			options.WithStore(store),
			options.WithNamespace(namespace),
		)
		if err != nil {
			t.Fatalf("failed to create embedder: %v", err)
		}
		return e
	}
	e1 := newEmbedder("model1")
	e2 := newEmbedder("model2")

	if _, err := e1.EmbedDocuments(ctx, []string{"x"}); err != nil {
		t.Fatalf("model1 embed failed: %v", err)
	}
	if _, err := e2.EmbedDocuments(ctx, []string{"x"}); err != nil {
		t.Fatalf("model2 embed failed: %v", err)
	}

	// Same text, two namespaces, two distinct entries
	if store.Len() != 2 {
		t.Fatalf("expected 2 stored entries, got %d", store.Len())
	}

	// Purging one namespace leaves the other intact
	deleted, err := e1.PurgeNamespace(ctx)
	if err != nil {
		t.Fatalf("PurgeNamespace failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", store.Len())
	}

	// model2's entry still serves hits
	before := provider.callCount()
	if _, err := e2.EmbedDocuments(ctx, []string{"x"}); err != nil {
		t.Fatalf("model2 re-embed failed: %v", err)
	}
	if provider.callCount() != before {
		t.Errorf("purging model1 invalidated model2's entry")
	}
}

func TestKeysEnumeration(t *testing.T) {
	ctx := context.Background()
	embedder, _, _ := newTestEmbedder(t)

	if _, err := embedder.EmbedDocuments(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}

	count := 0
	for key, err := range embedder.Keys(ctx) {
		if err != nil {
			t.Fatalf("Keys yielded error: %v", err)
		}
		if !keys.InNamespace(key, "test-model") {
			t.Errorf("key %q not in namespace test-model", key)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 keys, got %d", count)
	}
}

func TestProviderFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	embedder, provider, store := newTestEmbedder(t)

	provider.err = errors.New("rate limited")

	_, err := embedder.EmbedDocuments(ctx, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !errors.Is(err, provider.err) {
		t.Errorf("provider error not propagated verbatim: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed batch wrote %d entries", store.Len())
	}
}

func TestCorruptEntryIsAnError(t *testing.T) {
	ctx := context.Background()
	embedder, provider, store := newTestEmbedder(t)

	enc := keys.Encoder{Namespace: "test-model"}
	if err := store.MSet(ctx, []types.KV{
		{Key: enc.Encode("poisoned"), Value: []byte("not a vector")},
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	_, err := embedder.EmbedDocuments(ctx, []string{"poisoned"})
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Fatalf("expected codec.ErrCorrupt, got %v", err)
	}
	// Never silently recomputed
	if provider.callCount() != 0 {
		t.Errorf("provider called despite corrupt entry")
	}
}

func TestStoreReadErrorPropagates(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	faulty := &faultyStore{ByteStore: inmemory.NewMemoryStore(), readErr: errors.New("connection reset")}

	embedder, err := New(options.WithProvider(provider), options.WithStore(faulty))
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	_, err = embedder.EmbedDocuments(ctx, []string{"a"})
	if !errors.Is(err, ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead, got %v", err)
	}
	if !errors.Is(err, faulty.readErr) {
		t.Errorf("underlying error not wrapped: %v", err)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called despite read error")
	}
}

func TestRecomputeOnReadError(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	faulty := &faultyStore{ByteStore: inmemory.NewMemoryStore(), readErr: errors.New("connection reset")}

	embedder, err := New(
		options.WithProvider(provider),
		options.WithStore(faulty),
		options.WithRecomputeOnReadError(),
	)
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	vectors, err := embedder.EmbedDocuments(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if !reflect.DeepEqual(vectors[0], fakeVector("a")) {
		t.Errorf("recomputed vector wrong: %v", vectors[0])
	}
	if provider.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount())
	}
}

func TestStoreWriteErrorPropagates(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	faulty := &faultyStore{ByteStore: inmemory.NewMemoryStore(), writeErr: errors.New("disk full")}

	embedder, err := New(options.WithProvider(provider), options.WithStore(faulty))
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	_, err = embedder.EmbedDocuments(ctx, []string{"a"})
	if !errors.Is(err, ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite, got %v", err)
	}
}

func TestEmbedQueryBypassesCacheWithoutQueryStore(t *testing.T) {
	ctx := context.Background()
	embedder, provider, store := newTestEmbedder(t)

	for range 2 {
		vec, err := embedder.EmbedQuery(ctx, "what is up")
		if err != nil {
			t.Fatalf("EmbedQuery failed: %v", err)
		}
		if !reflect.DeepEqual(vec, fakeVector("what is up")) {
			t.Errorf("query vector wrong: %v", vec)
		}
	}

	// No query store: every call recomputes, nothing is persisted
	if provider.callCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.callCount())
	}
	if store.Len() != 0 {
		t.Errorf("query embedding leaked into the document store")
	}
}

func TestEmbedQueryUsesQueryStore(t *testing.T) {
	ctx := context.Background()
	queryStore := inmemory.NewMemoryStore()
	embedder, provider, docStore := newTestEmbedder(t, options.WithQueryStore(queryStore))

	for range 2 {
		if _, err := embedder.EmbedQuery(ctx, "what is up"); err != nil {
			t.Fatalf("EmbedQuery failed: %v", err)
		}
	}

	if provider.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount())
	}
	if queryStore.Len() != 1 {
		t.Errorf("expected 1 query store entry, got %d", queryStore.Len())
	}
	if docStore.Len() != 0 {
		t.Errorf("query embedding leaked into the document store")
	}
}

func TestConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	embedder, _, _ := newTestEmbedder(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			texts := []string{"shared", fmt.Sprintf("unique-%d", i%4)}
			vectors, err := embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				errs <- err
				return
			}
			if !reflect.DeepEqual(vectors[0], fakeVector("shared")) {
				errs <- fmt.Errorf("corrupted shared vector: %v", vectors[0])
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConstructionValidation(t *testing.T) {
	store := inmemory.NewMemoryStore()
	provider := &fakeProvider{}

	if _, err := New(options.WithStore(store)); err == nil {
		t.Error("expected error without provider")
	}
	if _, err := New(options.WithProvider(provider)); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewCacheBackedEmbedder(nil, store, ""); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := NewCacheBackedEmbedder(provider, nil, ""); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestEmptyNamespace(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	store := inmemory.NewMemoryStore()

	embedder, err := NewCacheBackedEmbedder(provider, store, "")
	if err != nil {
		t.Fatalf("empty namespace should be valid: %v", err)
	}
	if _, err := embedder.EmbedDocuments(ctx, []string{"a"}); err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if _, err := embedder.EmbedDocuments(ctx, []string{"a"}); err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount())
	}
}
