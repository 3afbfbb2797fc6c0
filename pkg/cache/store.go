package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store is a byte-oriented TTL store.
type Store interface {
	// Get returns ErrCacheMiss when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Layer names the store in metrics and logs.
	Layer() string
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a memory store that sweeps expired entries every
// cleanup interval.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanup)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, found := s.c.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrInvalidEntry
	}
	return data, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.c.Set(key, data, ttl)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Layer implements Store.
func (s *MemoryStore) Layer() string {
	return "memory"
}

// Len returns the number of stored items, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}

// RedisStore keeps entries in Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Layer implements Store.
func (s *RedisStore) Layer() string {
	return "redis"
}
