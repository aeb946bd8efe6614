package embedcache

import "errors"

// Store failures are distinct from key absence and from provider failures.
// Both sentinels are matchable with errors.Is on errors returned by the
// embedder.
var (
	// ErrStoreRead marks a backend failure while reading cached entries.
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite marks a backend failure while writing computed entries.
	ErrStoreWrite = errors.New("store write failed")
)
