package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/drip/pkg/adapters/kv"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "drip:session:"

// Backend implements kv.Backend using Redis strings.
type Backend struct {
	client *backend.Client
	prefix string
}

// Option configures the Backend.
type Option func(*Backend)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// NewBackend connects a new client and wraps it.
func NewBackend(address, password string, db int, opts ...Option) *Backend {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewBackendFromClient(rdb, opts...)
}

// NewBackendFromClient creates a Backend from an existing client.
func NewBackendFromClient(client *backend.Client, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewStore creates a Redis-backed store from an existing client.
func NewStore(client *backend.Client, prefix string, opts ...kv.Option) *kv.Store {
	return kv.New(NewBackendFromClient(client, WithPrefix(prefix)), opts...)
}

// Client returns the underlying client.
func (b *Backend) Client() *backend.Client {
	return b.client
}

// Prefix returns the key prefix.
func (b *Backend) Prefix() string {
	return b.prefix
}

func (b *Backend) key(k string) string {
	return b.prefix + k
}

// Get retrieves a record.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Put stores a record without expiration.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes a record.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (b *Backend) Close() error {
	return b.client.Close()
}
