// Package redisstore adapts the shared redis client to storage.Backend.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/toolshop/storefront/pkg/redis"
	"github.com/toolshop/storefront/pkg/storage"
)

// Client is the subset of redis.Client used by the store.
type Client interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Store persists session entries as redis strings. A positive ttl makes
// entries expire after that much inactivity. Retained entries never expire.
type Store struct {
	client Client
	ttl    time.Duration
}

// New returns a redis-backed store.
func New(client Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if ttl := s.ttlFor(key); ttl > 0 {
		if err := s.client.Touch(ctx, key, ttl); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, s.ttlFor(key))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}

func (s *Store) ttlFor(key string) time.Duration {
	if storage.IsRetainedKey(key) {
		return 0
	}
	return s.ttl
}
