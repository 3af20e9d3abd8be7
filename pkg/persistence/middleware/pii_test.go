package middleware_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/drip/pkg/adapters/kv"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksLeadContent(t *testing.T) {
	mw, err := middleware.NewPIIMiddleware([]string{`[\w.+-]+@[\w-]+\.[\w.]+`, `\d{3}\.\d{3}\.\d{3}-\d{2}`})
	require.NoError(t, err)
	store := kv.New(mw(memory.NewBackend()))
	ctx := context.Background()

	require.NoError(t, store.SetTranscript(ctx, []domain.Message{
		{ID: "1", Originator: domain.FromBot, Content: "write to help@example.com"},
		{ID: "2", Originator: domain.FromLead, Content: "I am joe@mail.com, id 123.456.789-00"},
	}))

	msgs := store.Transcript(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, "write to help@example.com", msgs[0].Content, "bot text is left alone")
	assert.Equal(t, "I am ***, id ***", msgs[1].Content)
}

func TestPIIMiddleware_OtherRecordsPassThrough(t *testing.T) {
	mw, err := middleware.NewPIIMiddleware([]string{`\d+`})
	require.NoError(t, err)
	store := kv.New(mw(memory.NewBackend()))
	ctx := context.Background()

	require.NoError(t, store.SetStepIndex(ctx, 12))
	assert.Equal(t, 12, store.StepIndex(ctx))
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid PII pattern")
}

func TestChain_Order(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{`secret`})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	backend := memory.NewBackend()
	store := kv.New(middleware.Chain(backend, pii, enc))
	ctx := context.Background()

	require.NoError(t, store.SetTranscript(ctx, []domain.Message{{ID: "1", Originator: domain.FromLead, Content: "the secret word"}}))
	raw, err := backend.Get(ctx, kv.KeyTranscript)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `{"encrypted":`))
	assert.Equal(t, "the *** word", store.Transcript(ctx)[0].Content)
}
