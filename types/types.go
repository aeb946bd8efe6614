package types

import (
	"context"
	"iter"
	"time"
)

// KV is a single key/value pair for batch writes.
type KV struct {
	Key   string
	Value []byte
}

// ByteStore defines the interface for different cache storage backends.
// This allows for pluggable storage systems including in-memory, filesystem,
// Redis and S3. Values are opaque bytes; callers own serialization.
type ByteStore interface {
	// MGet retrieves the values for keys, one result per key in request order.
	// A missing key yields a nil slice at its position and is not an error;
	// only backend I/O failure fails the call.
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// MSet writes all pairs, overwriting existing keys silently. Backends keep
	// each pair atomic (a reader never observes a partially written value) but
	// the batch as a whole need not be atomic.
	MSet(ctx context.Context, pairs []KV) error

	// Exists reports key presence, one bool per key in request order.
	Exists(ctx context.Context, keys []string) ([]bool, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys []string) error

	// YieldKeys returns a lazy sequence of the keys currently in the store,
	// optionally filtered to those starting with prefix. Each call starts a
	// fresh iteration over current state; order is backend-defined. Backend
	// failures are yielded as the second element and end the sequence.
	YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error]

	// Close releases resources held by the store.
	Close() error
}

// StoreConfig provides configuration options for store backends.
type StoreConfig struct {
	// For in-memory stores
	Capacity int
	TTL      time.Duration

	// For the filesystem store
	Dir string

	// For Redis
	ConnectionString string
	Username         string
	Password         string
	Database         int

	// For S3
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// Store-level key prefix for remote backends. Composed with (and distinct
	// from) the embedding namespace, which lives inside the cache key itself.
	Prefix string
}

// StoreType represents the type of store backend.
type StoreType string

const (
	StoreMemory     StoreType = "memory"
	StoreLRU        StoreType = "lru"
	StoreFilesystem StoreType = "filesystem"
	StoreRedis      StoreType = "redis"
	StoreS3         StoreType = "s3"
)

// EmbeddingProvider defines the interface all embedding providers must satisfy.
type EmbeddingProvider interface {
	// EmbedTexts turns a batch of texts into embedding vectors, one vector per
	// input text in the same order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// Close frees any resources held by the provider.
	Close()
}

// Embedder is the consumer-facing embedding contract, satisfied both by raw
// providers and by the cache-backed embedder that wraps them.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ProviderType represents the type of embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)
