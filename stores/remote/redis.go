// Package remote provides ByteStore backends for networked key-value services.
// Network failures surface as errors, distinct from key absence; a key that a
// backend expired or evicted is indistinguishable from one never written.
package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/botirk38/embedcache/types"
)

// RedisStore implements ByteStore on Redis. All keys are stored under an
// optional store-level prefix, which composes with (and is independent of) the
// namespace prefix inside cache keys.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// parseRedisURL parses a Redis URL and returns redis.Options.
func parseRedisURL(connectionString string) (*redis.Options, error) {
	// Handle redis:// or rediss:// URLs
	if strings.HasPrefix(connectionString, "redis://") || strings.HasPrefix(connectionString, "rediss://") {
		parsedURL, err := url.Parse(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}

		opts := &redis.Options{
			Addr: parsedURL.Host,
		}

		if parsedURL.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		if parsedURL.User != nil {
			opts.Username = parsedURL.User.Username()
			if password, ok := parsedURL.User.Password(); ok {
				opts.Password = password
			}
		}

		if parsedURL.Path != "" && parsedURL.Path != "/" {
			dbStr := strings.TrimPrefix(parsedURL.Path, "/")
			if db, err := strconv.Atoi(dbStr); err == nil {
				opts.DB = db
			}
		}

		return opts, nil
	}

	// For simple address format (host:port), return minimal options
	return &redis.Options{
		Addr: connectionString,
	}, nil
}

// NewRedisStore connects to Redis and verifies the connection. With a TTL
// configured, every write carries it; expired entries simply read as absent.
func NewRedisStore(config types.StoreConfig) (*RedisStore, error) {
	opts, err := parseRedisURL(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	// Override with explicit config values if provided
	if config.Username != "" {
		opts.Username = config.Username
	}
	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.Database != 0 {
		opts.DB = config.Database
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// MGet issues a single MGET for all keys.
func (s *RedisStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.redisKey(key)
	}
	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries from Redis: %w", err)
	}
	out := make([][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected Redis value type %T for key %q", v, keys[i])
		}
		out[i] = []byte(str)
	}
	return out, nil
}

// MSet pipelines one SET per pair so each key's value is replaced atomically
// and the configured TTL is attached.
func (s *RedisStore) MSet(ctx context.Context, pairs []types.KV) error {
	if len(pairs) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, p := range pairs {
		pipe.Set(ctx, s.redisKey(p.Key), p.Value, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write entries to Redis: %w", err)
	}
	return nil
}

// Exists pipelines one EXISTS per key to keep per-key results.
func (s *RedisStore) Exists(ctx context.Context, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Exists(ctx, s.redisKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check key existence in Redis: %w", err)
	}
	out := make([]bool, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

// Delete removes the given keys with a single DEL.
func (s *RedisStore) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.redisKey(key)
	}
	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete entries from Redis: %w", err)
	}
	return nil
}

// YieldKeys walks the keyspace with SCAN, stripping the store-level prefix so
// callers see cache keys. SCAN gives no ordering or snapshot guarantee, which
// matches the contract.
func (s *RedisStore) YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pattern := escapeMatch(s.prefix+prefix) + "*"
		var cursor uint64
		for {
			batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				yield("", fmt.Errorf("failed to scan keys from Redis: %w", err))
				return
			}
			for _, redisKey := range batch {
				key, ok := strings.CutPrefix(redisKey, s.prefix)
				if !ok {
					continue
				}
				if !yield(key, nil) {
					return
				}
			}
			cursor = next
			if cursor == 0 {
				return
			}
		}
	}
}

// escapeMatch escapes glob metacharacters so a literal prefix cannot match
// unrelated keys.
func escapeMatch(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)
	return r.Replace(s)
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
