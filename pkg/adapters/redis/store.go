// Package redis provides a Redis-backed BlobStore for deployments where
// the local cache is shared across kiosk instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// Store implements ports.BlobStore using Redis.
type Store struct {
	client    *backend.Client
	namespace string
	ttl       time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for cache entries. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithNamespace sets the key namespace prepended to every entry.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:    client,
		namespace: "gangway:cache:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) redisKey(key string) string {
	return s.namespace + key
}

// Put stores value under key, applying the configured TTL.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Get retrieves the value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, flow.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	return val, nil
}

// Delete removes the key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Keys scans for keys with the given prefix and returns them without
// the namespace.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.redisKey(prefix) + "*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	return keys, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
