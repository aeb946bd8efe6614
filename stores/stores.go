// Package stores creates ByteStore backends by type.
package stores

import (
	"context"
	"errors"

	"github.com/botirk38/embedcache/stores/filesystem"
	"github.com/botirk38/embedcache/stores/inmemory"
	"github.com/botirk38/embedcache/stores/remote"
	"github.com/botirk38/embedcache/types"
)

var ErrUnsupportedStore = errors.New("unsupported store type")

// StoreFactory creates store backends based on type and configuration.
type StoreFactory struct{}

// NewStore creates a new store of the specified type.
func (f *StoreFactory) NewStore(ctx context.Context, storeType types.StoreType, config types.StoreConfig) (types.ByteStore, error) {
	switch storeType {
	case types.StoreMemory:
		return NewMemoryStore()
	case types.StoreLRU:
		return NewLRUStore(config)
	case types.StoreFilesystem:
		return NewFilesystemStore(config)
	case types.StoreRedis:
		return NewRedisStore(config)
	case types.StoreS3:
		return NewS3Store(ctx, config)
	default:
		return nil, ErrUnsupportedStore
	}
}

// NewMemoryStore creates a new unbounded in-memory store.
func NewMemoryStore() (types.ByteStore, error) {
	return inmemory.NewMemoryStore(), nil
}

// NewLRUStore creates a new capacity-capped in-memory store.
func NewLRUStore(config types.StoreConfig) (types.ByteStore, error) {
	return inmemory.NewLRUStore(config)
}

// NewFilesystemStore creates a new local-directory store.
func NewFilesystemStore(config types.StoreConfig) (types.ByteStore, error) {
	return filesystem.NewFilesystemStore(config)
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(config types.StoreConfig) (types.ByteStore, error) {
	return remote.NewRedisStore(config)
}

// NewS3Store creates a new S3 store.
func NewS3Store(ctx context.Context, config types.StoreConfig) (types.ByteStore, error) {
	return remote.NewS3Store(ctx, config)
}
