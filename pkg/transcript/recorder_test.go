package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/drip/internal/timer"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T, opts ...Option) (*Recorder, *timer.Manual) {
	t.Helper()
	clock := timer.NewManual()
	return NewRecorder(session.NewManager(memory.NewStore()), clock, opts...), clock
}

func TestRecorder_EmitBotMessage(t *testing.T) {
	var seen []domain.Message
	r, _ := newRecorder(t, WithOnMessage(func(_ context.Context, m domain.Message) {
		seen = append(seen, m)
	}))
	ctx := context.Background()

	msg, err := r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.FromBot, msg.Originator)
	assert.Equal(t, domain.StatusDelivered, msg.DeliveryStatus)

	last, ok := r.Last(ctx)
	require.True(t, ok)
	assert.Equal(t, msg.ID, last.ID)
	assert.Len(t, seen, 1)
}

func TestRecorder_EmitIsIdempotent(t *testing.T) {
	var notified int
	r, _ := newRecorder(t, WithOnMessage(func(context.Context, domain.Message) { notified++ }))
	ctx := context.Background()

	first, err := r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "a", IdempotencyKey: "step:0"})
	require.NoError(t, err)
	second, err := r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "a", IdempotencyKey: "step:0"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, r.Messages(ctx), 1)
	assert.Equal(t, 1, notified)

	// Messages without a key are never deduplicated.
	_, _ = r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "gate"})
	_, _ = r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "gate"})
	assert.Len(t, r.Messages(ctx), 3)
}

func TestRecorder_LeadDeliveryProgression(t *testing.T) {
	r, clock := newRecorder(t)
	ctx := context.Background()

	msg, err := r.AppendLead(ctx, domain.Inbound{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSending, msg.DeliveryStatus)
	assert.Equal(t, domain.KindText, msg.Kind)

	clock.Advance(100 * time.Millisecond)
	last, _ := r.Last(ctx)
	assert.Equal(t, domain.StatusSent, last.DeliveryStatus)

	clock.Advance(2900 * time.Millisecond)
	last, _ = r.Last(ctx)
	assert.Equal(t, domain.StatusDelivered, last.DeliveryStatus)
}

func TestRecorder_StatusNeverRegresses(t *testing.T) {
	r, clock := newRecorder(t)
	ctx := context.Background()

	msg, err := r.AppendLead(ctx, domain.Inbound{Kind: domain.KindImage, MediaRef: "receipt.png"})
	require.NoError(t, err)

	require.NoError(t, r.MarkRead(ctx))
	clock.Drain()

	last, _ := r.Last(ctx)
	assert.Equal(t, msg.ID, last.ID)
	assert.Equal(t, domain.StatusRead, last.DeliveryStatus)
}

func TestRecorder_UpdatesSurviveConcurrentEmits(t *testing.T) {
	r, clock := newRecorder(t)
	ctx := context.Background()

	lead, err := r.AppendLead(ctx, domain.Inbound{Content: "hi"})
	require.NoError(t, err)
	_, err = r.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: "reply"})
	require.NoError(t, err)
	clock.Drain()

	msgs := r.Messages(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, lead.ID, msgs[0].ID)
	assert.Equal(t, domain.StatusDelivered, msgs[0].DeliveryStatus)
	assert.Equal(t, domain.FromBot, msgs[1].Originator)
}

func TestRecorder_EmptyTranscript(t *testing.T) {
	r, _ := newRecorder(t)
	_, ok := r.Last(context.Background())
	assert.False(t, ok)
}

func TestRecorder_RejectsOversizedLeadInput(t *testing.T) {
	r, _ := newRecorder(t, WithMaxInputSize(4))
	ctx := context.Background()

	_, err := r.AppendLead(ctx, domain.Inbound{Content: "too long"})
	assert.ErrorIs(t, err, ErrInputTooLarge)
	assert.Empty(t, r.Messages(ctx))

	msg, err := r.AppendLead(ctx, domain.Inbound{Content: "ok\x1b"})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
}
