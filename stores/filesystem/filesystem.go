// Package filesystem provides a ByteStore backed by a local directory, one
// file per key. Files hold exactly the stored value bytes. Writes go through a
// temp file and rename, so a crash mid-write leaves either the old entry or no
// entry, never a truncated one.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/botirk38/embedcache/types"
)

// FilesystemStore implements ByteStore on a directory.
type FilesystemStore struct {
	dir string
}

// NewFilesystemStore creates the directory if needed and returns a store
// rooted at it.
func NewFilesystemStore(config types.StoreConfig) (*FilesystemStore, error) {
	if config.Dir == "" {
		return nil, errors.New("filesystem store requires a directory")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FilesystemStore{dir: config.Dir}, nil
}

// MGet reads one file per key in request order, nil for absent keys.
func (s *FilesystemStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(s.path(key))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %q: %w", key, err)
		}
		out[i] = data
	}
	return out, nil
}

// MSet writes each pair via temp file and rename. Pairs written before a
// failure remain; the failing pair never surfaces as a partial file.
func (s *FilesystemStore) MSet(ctx context.Context, pairs []types.KV) error {
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeAtomic(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *FilesystemStore) writeAtomic(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %q: %w", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write entry %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write entry %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit entry %q: %w", key, err)
	}
	return nil
}

// Exists stats one file per key in request order.
func (s *FilesystemStore) Exists(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(s.path(key)); err == nil {
			out[i] = true
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat entry %q: %w", key, err)
		}
	}
	return out, nil
}

// Delete removes the files for the given keys. Missing keys are ignored.
func (s *FilesystemStore) Delete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete entry %q: %w", key, err)
		}
	}
	return nil
}

// YieldKeys lists the directory at call time and yields the decoded keys.
// Temp files and foreign filenames are skipped.
func (s *FilesystemStore) YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			yield("", fmt.Errorf("failed to list store directory: %w", err))
			return
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
				continue
			}
			key, err := unescapeKey(entry.Name())
			if err != nil {
				continue
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

// Close is a no-op for the filesystem store.
func (s *FilesystemStore) Close() error { return nil }

func (s *FilesystemStore) path(key string) string {
	return filepath.Join(s.dir, escapeKey(key))
}

const upperhex = "0123456789ABCDEF"

// escapeKey maps a cache key to a filesystem-safe filename. Letters, digits,
// '.', '_' and '-' pass through; every other byte becomes %XX. The mapping is
// deterministic and invertible via unescapeKey.
func escapeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

// unescapeKey inverts escapeKey.
func unescapeKey(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] != '%' {
			b.WriteByte(name[i])
			continue
		}
		if i+2 >= len(name) {
			return "", fmt.Errorf("truncated escape in filename %q", name)
		}
		hi, lo := unhex(name[i+1]), unhex(name[i+2])
		if hi < 0 || lo < 0 {
			return "", fmt.Errorf("invalid escape in filename %q", name)
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}
