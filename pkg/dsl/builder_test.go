package dsl

import (
	"testing"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	s, err := New("simple").
		Text("Hello, DSL!").
		WaitForReply().
		Delay(300*time.Millisecond).
		Audio("intro.ogg", 7*time.Second).
		Image("pic.png", "caption").
		Video("clip.mp4", "").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "simple", s.Name())
	require.Equal(t, 5, s.Len())

	first, _ := s.Get(0)
	assert.Equal(t, domain.KindText, first.Kind)
	assert.Equal(t, "Hello, DSL!", first.Text)
	assert.Zero(t, first.TypingDelay)

	audio, _ := s.Get(2)
	assert.Equal(t, 300*time.Millisecond, audio.TypingDelay)
	assert.Equal(t, 7*time.Second, audio.Duration)

	image, _ := s.Get(3)
	assert.Zero(t, image.TypingDelay, "delay applies to one step only")
	assert.Equal(t, "caption", image.Text)
}

func TestBuilder_Checkpoint(t *testing.T) {
	s, err := New("gated").
		Text("send the receipt").
		Checkpoint().
		Reprompts("first", "second").
		Confirmation("thanks", "https://example.com").
		Text("bye").
		Build()
	require.NoError(t, err)

	idx, ok := s.Checkpoint()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "second", s.Reprompt(1))
	assert.Equal(t, "https://example.com", s.FollowUp())
}

func TestBuilder_CheckpointWithoutGate(t *testing.T) {
	_, err := New("broken").Checkpoint().Build()
	assert.ErrorIs(t, err, domain.ErrInvalidScript)

	assert.Panics(t, func() {
		New("broken").Text("").MustBuild()
	})
}

func TestBuilder_PaymentFlow(t *testing.T) {
	s := New("legacy").
		PaymentButtons().
		Pix().
		WaitForPayment().
		PaymentReminders("pay please").
		MustBuild()

	assert.True(t, s.UsesPayments())
	assert.Equal(t, "pay please", s.PaymentReminder(3))
}
