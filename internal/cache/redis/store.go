// Package redis provides a CacheStore backed by a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/cloudprice/internal/observability"
)

// Config contains Redis connection settings.
type Config struct {
	Addr         string        `env:"REDIS_ADDR"          envDefault:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB"            envDefault:"0"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"  envDefault:"2s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"  envDefault:"1s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"1s"`
}

// Store implements the CacheStore interface on Redis. Every Redis error is
// logged and reported as a miss or a failed write.
type Store struct {
	client *redis.Client
}

// NewClient creates a Redis client and pings it. A failed ping is returned
// alongside the client so callers may keep running with a degraded cache.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Protocol:     2,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the stored value or a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		observability.FromContext(ctx).Warn("redis get failed",
			observability.String("key", key),
			observability.Error(err))
		return nil, false
	}
	return value, true
}

// Set stores value with SET key value EX ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		observability.FromContext(ctx).Warn("redis set failed",
			observability.String("key", key),
			observability.Error(err))
		return false
	}
	return true
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		observability.FromContext(ctx).Warn("redis delete failed",
			observability.String("key", key),
			observability.Error(err))
		return false
	}
	return true
}

// Clear flushes the selected database.
func (s *Store) Clear(ctx context.Context) bool {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		observability.FromContext(ctx).Warn("redis flush failed", observability.Error(err))
		return false
	}
	return true
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
