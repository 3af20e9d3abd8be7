package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store implementation
// adheres to the defined interface contract. The store must start empty.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		assert.Equal(t, 0, store.StepIndex(ctx))
		assert.Empty(t, store.Transcript(ctx))
		assert.Nil(t, store.PaymentData(ctx))
	})

	t.Run("Step Index", func(t *testing.T) {
		require.NoError(t, store.SetStepIndex(ctx, 7))
		assert.Equal(t, 7, store.StepIndex(ctx))

		require.NoError(t, store.ResetStepIndex(ctx))
		assert.Equal(t, 0, store.StepIndex(ctx))
	})

	t.Run("Transcript", func(t *testing.T) {
		created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		msgs := []domain.Message{
			{ID: "1", Originator: domain.FromBot, Kind: domain.KindText, Content: "hello", DeliveryStatus: domain.StatusDelivered, CreatedAt: created},
			{ID: "2", Originator: domain.FromLead, Kind: domain.KindAudio, MediaRef: "a.mp3", Duration: 3 * time.Second, DeliveryStatus: domain.StatusSending, CreatedAt: created},
		}
		require.NoError(t, store.SetTranscript(ctx, msgs))

		loaded := store.Transcript(ctx)
		require.Len(t, loaded, 2)
		assert.Equal(t, "hello", loaded[0].Content)
		assert.Equal(t, domain.FromLead, loaded[1].Originator)
		assert.Equal(t, 3*time.Second, loaded[1].Duration)
		assert.True(t, created.Equal(loaded[0].CreatedAt))

		// Mutating the returned slice must not leak into the store.
		loaded[0].Content = "mutated"
		assert.Equal(t, "hello", store.Transcript(ctx)[0].Content)

		require.NoError(t, store.ClearTranscript(ctx))
		assert.Empty(t, store.Transcript(ctx))
	})

	t.Run("Payment Data", func(t *testing.T) {
		data := domain.PaymentData{QRImage: "img", QRText: "code", ID: "pay-1", Amount: 10}
		require.NoError(t, store.SetPaymentData(ctx, data))

		loaded := store.PaymentData(ctx)
		require.NotNil(t, loaded)
		assert.Equal(t, data, *loaded)

		require.NoError(t, store.ClearPaymentData(ctx))
		assert.Nil(t, store.PaymentData(ctx))

		// Clearing twice is not an error.
		assert.NoError(t, store.ClearPaymentData(ctx))
	})
}
