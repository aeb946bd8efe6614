// Package options provides functional options for configuring cache-backed
// embedders.
package options

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/botirk38/embedcache/providers/openai"
	"github.com/botirk38/embedcache/stores"
	"github.com/botirk38/embedcache/types"
)

// Option represents a configuration option for a cache-backed embedder.
type Option func(*Config) error

// Config holds the configuration for building a cache-backed embedder.
type Config struct {
	Provider   types.EmbeddingProvider
	Store      types.ByteStore
	QueryStore types.ByteStore
	Namespace  string
	Logger     zerolog.Logger

	// RecomputeOnReadError degrades store read failures to cache misses so
	// every read error becomes a provider call. Off by default: a persistent
	// backend outage should surface as errors, not as silently slow operation.
	RecomputeOnReadError bool
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		Logger: zerolog.Nop(),
	}
}

// Apply applies all the given options to the config.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == nil {
		return errors.New("embedding provider is required - use WithProvider or WithOpenAIProvider")
	}
	if c.Store == nil {
		return errors.New("document store is required - use WithStore, WithFilesystemStore, etc.")
	}
	return nil
}

// WithProvider sets a pre-configured embedding provider.
func WithProvider(provider types.EmbeddingProvider) Option {
	return func(cfg *Config) error {
		if provider == nil {
			return errors.New("provider cannot be nil")
		}
		cfg.Provider = provider
		return nil
	}
}

// WithOpenAIProvider sets up an OpenAI embedding provider.
func WithOpenAIProvider(apiKey string, model ...string) Option {
	return func(cfg *Config) error {
		config := openai.OpenAIConfig{
			APIKey: apiKey,
		}
		if len(model) > 0 {
			config.Model = model[0]
		}

		provider, err := openai.NewOpenAIProvider(config)
		if err != nil {
			return err
		}
		cfg.Provider = provider
		return nil
	}
}

// WithStore sets a pre-configured document store.
func WithStore(store types.ByteStore) Option {
	return func(cfg *Config) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		cfg.Store = store
		return nil
	}
}

// WithMemoryStore sets up an unbounded in-memory document store.
func WithMemoryStore() Option {
	return func(cfg *Config) error {
		store, err := stores.NewMemoryStore()
		if err != nil {
			return err
		}
		cfg.Store = store
		return nil
	}
}

// WithFilesystemStore sets up a local-directory document store.
func WithFilesystemStore(dir string) Option {
	return func(cfg *Config) error {
		store, err := stores.NewFilesystemStore(types.StoreConfig{Dir: dir})
		if err != nil {
			return err
		}
		cfg.Store = store
		return nil
	}
}

// WithRedisStore sets up a Redis document store.
func WithRedisStore(addr string, db int) Option {
	return func(cfg *Config) error {
		store, err := stores.NewRedisStore(types.StoreConfig{
			ConnectionString: addr,
			Database:         db,
		})
		if err != nil {
			return err
		}
		cfg.Store = store
		return nil
	}
}

// WithQueryStore sets a separate store for caching query embeddings. Without
// one, queries bypass the cache and are always recomputed.
func WithQueryStore(store types.ByteStore) Option {
	return func(cfg *Config) error {
		if store == nil {
			return errors.New("query store cannot be nil")
		}
		cfg.QueryStore = store
		return nil
	}
}

// WithNamespace sets the cache namespace, typically the embedding model
// identifier. Two different models must never share a namespace.
func WithNamespace(namespace string) Option {
	return func(cfg *Config) error {
		cfg.Namespace = namespace
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *Config) error {
		cfg.Logger = logger
		return nil
	}
}

// WithRecomputeOnReadError opts in to treating store read failures as cache
// misses instead of propagating them.
func WithRecomputeOnReadError() Option {
	return func(cfg *Config) error {
		cfg.RecomputeOnReadError = true
		return nil
	}
}
