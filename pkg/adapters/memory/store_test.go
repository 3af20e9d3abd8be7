package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStoreContract(t, store)
}

func TestBackend_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	b := memory.NewBackend()
	require.NoError(t, b.Put(ctx, "k", []byte("abc")))

	v, err := b.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'x'

	again, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
	assert.ElementsMatch(t, []string{"k"}, b.Keys())
}
