package memory

import (
	"context"
	"sync"

	"github.com/aretw0/drip/pkg/adapters/kv"
)

// Backend implements kv.Backend in memory.
// Safe for concurrent use.
type Backend struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		data: make(map[string][]byte),
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...kv.Option) *kv.Store {
	return kv.New(NewBackend(), opts...)
}

// Get returns a copy of the stored value.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	// Copy on read so callers can't mutate stored bytes.
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Keys returns the stored keys.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}
