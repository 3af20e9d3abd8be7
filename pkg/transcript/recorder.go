// Package transcript records the conversation and simulates delivery checkmarks.
package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/aretw0/drip/pkg/session"
	"github.com/google/uuid"
)

// Recorder appends messages to the persisted transcript.
// It implements ports.MessageSink and ports.TranscriptReader.
type Recorder struct {
	sessions  *session.Manager
	scheduler ports.Scheduler
	onMessage func(ctx context.Context, m domain.Message)
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	maxInput  int
}

var (
	_ ports.MessageSink      = (*Recorder)(nil)
	_ ports.TranscriptReader = (*Recorder)(nil)
)

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger configures a logger for delivery-update failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithOnMessage registers a callback for every newly recorded message.
func WithOnMessage(fn func(ctx context.Context, m domain.Message)) Option {
	return func(r *Recorder) {
		r.onMessage = fn
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithMaxInputSize bounds the byte length of lead content. Zero disables the check.
func WithMaxInputSize(n int) Option {
	return func(r *Recorder) {
		r.maxInput = n
	}
}

// NewRecorder creates a Recorder. The scheduler drives delivery updates of
// lead messages.
func NewRecorder(sessions *session.Manager, scheduler ports.Scheduler, opts ...Option) *Recorder {
	r := &Recorder{
		sessions:  sessions,
		scheduler: scheduler,
		logger:    logging.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		maxInput:  DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit appends a bot message as delivered.
// An outbound message whose idempotency key is already in the transcript is
// not appended again; the existing message is returned instead.
func (r *Recorder) Emit(ctx context.Context, out domain.Outbound) (domain.Message, error) {
	var (
		msg     domain.Message
		created bool
	)
	err := r.sessions.UpdateTranscript(ctx, func(msgs []domain.Message) ([]domain.Message, error) {
		if out.IdempotencyKey != "" {
			for _, m := range msgs {
				if m.IdempotencyKey == out.IdempotencyKey {
					msg = m
					return msgs, nil
				}
			}
		}
		msg = domain.Message{
			ID:             r.newID(),
			Originator:     domain.FromBot,
			Kind:           out.Kind,
			Content:        out.Content,
			MediaRef:       out.MediaRef,
			Duration:       out.Duration,
			DeliveryStatus: domain.StatusDelivered,
			CreatedAt:      r.now(),
			Pix:            out.Pix,
			IdempotencyKey: out.IdempotencyKey,
		}
		created = true
		return append(msgs, msg), nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	if created {
		r.notify(ctx, msg)
	} else {
		r.logger.Debug("Duplicate emission suppressed", "key", out.IdempotencyKey)
	}
	return msg, nil
}

// AppendLead records a lead message as sending and schedules its
// sent and delivered transitions. Input is sanitized first.
func (r *Recorder) AppendLead(ctx context.Context, in domain.Inbound) (domain.Message, error) {
	in, err := Sanitize(in, r.maxInput)
	if err != nil {
		return domain.Message{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = domain.KindText
	}
	msg := domain.Message{
		ID:             r.newID(),
		Originator:     domain.FromLead,
		Kind:           kind,
		Content:        in.Content,
		MediaRef:       in.MediaRef,
		Duration:       in.Duration,
		DeliveryStatus: domain.StatusSending,
		CreatedAt:      r.now(),
	}
	err = r.sessions.UpdateTranscript(ctx, func(msgs []domain.Message) ([]domain.Message, error) {
		return append(msgs, msg), nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	r.notify(ctx, msg)

	r.scheduler.After(domain.LeadSentAfter, func() {
		r.advance(context.Background(), msg.ID, domain.StatusSent)
	})
	r.scheduler.After(domain.LeadDeliveredAfter, func() {
		r.advance(context.Background(), msg.ID, domain.StatusDelivered)
	})
	return msg, nil
}

// Advance moves a message's delivery status forward. Backward moves and
// unknown IDs are ignored.
func (r *Recorder) Advance(ctx context.Context, id string, status domain.DeliveryStatus) error {
	return r.sessions.UpdateTranscript(ctx, func(msgs []domain.Message) ([]domain.Message, error) {
		for i := range msgs {
			if msgs[i].ID == id && msgs[i].DeliveryStatus.Advances(status) {
				msgs[i].DeliveryStatus = status
			}
		}
		return msgs, nil
	})
}

func (r *Recorder) advance(ctx context.Context, id string, status domain.DeliveryStatus) {
	if err := r.Advance(ctx, id, status); err != nil {
		r.logger.Warn("Failed to update delivery status", "message_id", id, "status", status, "err", err)
	}
}

// MarkRead marks every lead message as read.
func (r *Recorder) MarkRead(ctx context.Context) error {
	return r.sessions.UpdateTranscript(ctx, func(msgs []domain.Message) ([]domain.Message, error) {
		for i := range msgs {
			if msgs[i].FromLead() && msgs[i].DeliveryStatus.Advances(domain.StatusRead) {
				msgs[i].DeliveryStatus = domain.StatusRead
			}
		}
		return msgs, nil
	})
}

// Last returns the most recent message.
func (r *Recorder) Last(ctx context.Context) (domain.Message, bool) {
	msgs := r.sessions.Transcript(ctx)
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Messages returns the full transcript.
func (r *Recorder) Messages(ctx context.Context) []domain.Message {
	return r.sessions.Transcript(ctx)
}

func (r *Recorder) notify(ctx context.Context, m domain.Message) {
	if r.onMessage != nil {
		r.onMessage(ctx, m)
	}
}
