package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/dsl"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/aretw0/drip/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointScript() *script.Script {
	return dsl.New("gated").
		Text("send the receipt").
		Checkpoint().
		Text("bye").
		Reprompts("first nudge", "second nudge").
		Confirmation("payment received", "https://example.com/access").
		MustBuild()
}

func startAtCheckpoint(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, checkpointScript())
	h.start(t)
	require.Equal(t, 1, h.index())
	require.Equal(t, domain.StateWaitingForReply, h.engine.State())
	return h
}

func TestGate_TextRepliesEscalate(t *testing.T) {
	h := startAtCheckpoint(t)

	require.NoError(t, h.reply(t, domain.Inbound{Content: "done"}))
	require.NoError(t, h.reply(t, domain.Inbound{Content: "I paid"}))

	assert.Equal(t, []string{"send the receipt", "first nudge", "second nudge"}, h.botTexts())
	assert.Equal(t, 1, h.index(), "text never advances the checkpoint")
	assert.Equal(t, domain.StateWaitingForReply, h.engine.State())
	assert.Equal(t, 2, h.engine.Status(context.Background()).Retries)
}

func TestGate_RepromptClampsAtLastPhrasing(t *testing.T) {
	h := startAtCheckpoint(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, h.reply(t, domain.Inbound{Content: "?"}))
	}

	assert.Equal(t, []string{"send the receipt", "first nudge", "second nudge", "second nudge", "second nudge"}, h.botTexts())
	assert.Equal(t, 1, h.index())
}

func TestGate_RepromptTiming(t *testing.T) {
	h := startAtCheckpoint(t)
	before := len(h.clock.Sleeps())

	require.NoError(t, h.reply(t, domain.Inbound{Content: "done"}))

	sleeps := h.clock.Sleeps()[before:]
	assert.Equal(t, []time.Duration{
		domain.ReplyPause,
		domain.TextTypingDelay("first nudge"),
		domain.LabelSettle,
		domain.LabelSettle,
	}, sleeps)
}

func TestGate_MediaAcceptsProof(t *testing.T) {
	for _, kind := range []domain.ContentKind{domain.KindAudio, domain.KindImage, domain.KindVideo} {
		t.Run(string(kind), func(t *testing.T) {
			h := startAtCheckpoint(t)
			require.NoError(t, h.reply(t, domain.Inbound{Content: "nope"}))
			require.Equal(t, 1, h.engine.Status(context.Background()).Retries)

			before := len(h.clock.Sleeps())
			require.NoError(t, h.reply(t, domain.Inbound{Kind: kind, MediaRef: "receipt"}))

			assert.Equal(t, 2, h.index(), "media advances by exactly one")
			assert.Equal(t, 0, h.engine.Status(context.Background()).Retries)
			assert.Equal(t, domain.StateIdle, h.engine.State())
			assert.Equal(t, []string{"send the receipt", "first nudge", "payment received", "https://example.com/access"}, h.botTexts())

			// Confirmation and follow-up go out back to back.
			assert.Equal(t, []time.Duration{
				domain.ReplyPause,
				domain.TextTypingDelay("payment received"),
				domain.LabelSettle,
				domain.LabelSettle,
				domain.LabelSettle,
			}, h.clock.Sleeps()[before:])

			h.clock.Drain()
			assert.Equal(t, "bye", h.botTexts()[4])
			assert.Equal(t, domain.StateFinished, h.engine.State())
		})
	}
}

func TestGate_CheckpointIgnoresBotLastMessage(t *testing.T) {
	h := startAtCheckpoint(t)

	require.NoError(t, h.engine.HandleReply(context.Background()))

	assert.Equal(t, []string{"send the receipt"}, h.botTexts())
	assert.Equal(t, 1, h.index())
	assert.Equal(t, domain.StateWaitingForReply, h.engine.State())
}

func TestGate_RetriesResetOnSessionReset(t *testing.T) {
	h := startAtCheckpoint(t)
	require.NoError(t, h.reply(t, domain.Inbound{Content: "x"}))
	require.Equal(t, 1, h.engine.Status(context.Background()).Retries)

	require.NoError(t, h.engine.Reset(context.Background()))
	h.clock.Drain()

	assert.Equal(t, 0, h.engine.Status(context.Background()).Retries)
	require.NoError(t, h.reply(t, domain.Inbound{Content: "x"}))
	assert.Equal(t, []string{"send the receipt", "first nudge"}, h.botTexts())
}

func TestGate_DefaultScriptCheckpoint(t *testing.T) {
	h := newHarness(t, script.Default())
	h.start(t)

	// Walk every ordinary pause point up to the checkpoint.
	for h.index() < script.DefaultCheckpoint {
		require.Equal(t, domain.StateWaitingForReply, h.engine.State())
		require.NoError(t, h.reply(t, domain.Inbound{Content: "ok"}))
		h.clock.Drain()
	}
	require.Equal(t, script.DefaultCheckpoint, h.index())

	s := script.Default()
	require.NoError(t, h.reply(t, domain.Inbound{Content: "sent it"}))
	require.NoError(t, h.reply(t, domain.Inbound{Content: "really"}))
	texts := h.botTexts()
	assert.Equal(t, s.Reprompt(0), texts[len(texts)-2])
	assert.Equal(t, s.Reprompt(1), texts[len(texts)-1])

	require.NoError(t, h.reply(t, domain.Inbound{Kind: domain.KindImage, MediaRef: "receipt.png"}))
	h.clock.Drain()

	texts = h.botTexts()
	last, _ := s.Get(s.Len() - 1)
	assert.Equal(t, []string{s.Confirmation(), s.FollowUp(), last.Text}, texts[len(texts)-3:])
	assert.Equal(t, domain.StateFinished, h.engine.State())
}

func TestGate_CallerCancellationDoesNotSkipReprompt(t *testing.T) {
	h := startAtCheckpoint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.recorder.AppendLead(context.Background(), domain.Inbound{Content: "done"})
	require.NoError(t, err)
	require.NoError(t, h.engine.HandleReply(ctx))

	require.NoError(t, h.reply(t, domain.Inbound{Content: "done, really"}))

	assert.Equal(t, []string{"send the receipt", "first nudge", "second nudge"}, h.botTexts())
	assert.Equal(t, 2, h.engine.Status(context.Background()).Retries)
}

func TestGate_CallerCancellationStillAcceptsProof(t *testing.T) {
	h := startAtCheckpoint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.recorder.AppendLead(context.Background(), domain.Inbound{Kind: domain.KindImage, MediaRef: "receipt"})
	require.NoError(t, err)
	require.NoError(t, h.engine.HandleReply(ctx))

	assert.Equal(t, 2, h.index())
	assert.Equal(t, []string{"send the receipt", "payment received", "https://example.com/access"}, h.botTexts())
}

func TestGate_FailedRepromptDoesNotCount(t *testing.T) {
	sink := &flakySink{}
	h := newHarness(t, checkpointScript(), withSink(func(next ports.MessageSink) ports.MessageSink {
		sink.next = next
		return sink
	}))
	h.start(t)
	require.Equal(t, 1, h.index())

	sink.failures = 1
	assert.Error(t, h.reply(t, domain.Inbound{Content: "done"}))
	assert.Equal(t, 0, h.engine.Status(context.Background()).Retries)

	require.NoError(t, h.reply(t, domain.Inbound{Content: "done"}))
	assert.Equal(t, []string{"send the receipt", "first nudge"}, h.botTexts())
	assert.Equal(t, 1, h.engine.Status(context.Background()).Retries)
}
