package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys in a shared Redis database.
const DefaultRedisPrefix = "scan:cache:"

// clearBatchSize is the SCAN page size used by Clear.
const clearBatchSize = 100

// RedisStore keeps entries in Redis and relies on key expiry for eviction.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ttlSeconds int
}

// NewRedisStore connects to addr and verifies the server answers PING.
func NewRedisStore(ctx context.Context, addr string, ttlSeconds int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return NewRedisStoreWithClient(client, DefaultRedisPrefix, ttlSeconds), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, ttlSeconds int) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttlSeconds: ttlSeconds}
}

// Get returns ErrCacheNotFound when the key is absent or already expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(raw, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	if entry.IsExpired() {
		return nil, ErrCacheExpired
	}
	return &entry, nil
}

// Set stores data with the store TTL as the Redis key expiry.
func (s *RedisStore) Set(ctx context.Context, key string, data json.RawMessage) error {
	if key == "" {
		return ErrInvalidCacheKey
	}

	encoded, err := json.Marshal(NewEntry(key, data, s.ttlSeconds))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	ttl := time.Duration(s.ttlSeconds) * time.Second
	if err := s.client.Set(ctx, s.prefix+key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", clearBatchSize).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan %s*: %w", s.prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}

// IsEnabled always reports true; a disabled cache never builds a RedisStore.
func (s *RedisStore) IsEnabled() bool {
	return true
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
