package drip

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/internal/sequencer"
	"github.com/aretw0/drip/internal/timer"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/aretw0/drip/pkg/script"
	"github.com/aretw0/drip/pkg/session"
	"github.com/aretw0/drip/pkg/transcript"
)

// Status is a point-in-time view of the session.
type Status = sequencer.Status

// Session is the high-level entry point of the library: one script, one lead,
// one persisted conversation.
type Session struct {
	engine    *sequencer.Engine
	recorder  *transcript.Recorder
	sessions  *session.Manager
	scheduler ports.Scheduler
	logger    *slog.Logger

	script    *script.Script
	store     ports.Store
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	payments  ports.PaymentClient
	sleep     ports.SleepFunc
	timeScale float64
	maxInput  int
	Name      string
}

// Option defines a functional option for configuring the Session.
type Option func(*Session)

// WithScript sets the script to play. Defaults to script.Default().
func WithScript(s *script.Script) Option {
	return func(sess *Session) {
		sess.script = s
	}
}

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store ports.Store) Option {
	return func(sess *Session) {
		sess.store = store
	}
}

// WithLocker enables distributed locking of session records.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(sess *Session) {
		sess.locker = locker
	}
}

// WithLifecycleHooks registers host callbacks. Multiple calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(sess *Session) {
		sess.hooks = domain.MergeHooks(sess.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sess *Session) {
		sess.logger = logger
	}
}

// WithPayments enables the legacy payment flow.
func WithPayments(client ports.PaymentClient) Option {
	return func(sess *Session) {
		sess.payments = client
	}
}

// WithTimeScale multiplies every simulated delay. 1 is real time, 0 is instant.
func WithTimeScale(factor float64) Option {
	return func(sess *Session) {
		sess.timeScale = factor
	}
}

// WithMaxInputSize bounds the byte length of lead replies.
func WithMaxInputSize(n int) Option {
	return func(sess *Session) {
		sess.maxInput = n
	}
}

// WithClock replaces the sleep and scheduling primitives, for deterministic tests.
func WithClock(sleep ports.SleepFunc, scheduler ports.Scheduler) Option {
	return func(sess *Session) {
		sess.sleep = sleep
		sess.scheduler = scheduler
	}
}

// New assembles a Session. It does not start playing until Start.
func New(opts ...Option) (*Session, error) {
	sess := &Session{timeScale: 1, maxInput: transcript.DefaultMaxInputSize}
	for _, opt := range opts {
		opt(sess)
	}

	if sess.logger == nil {
		sess.logger = logging.NewNop()
	}
	if sess.script == nil {
		sess.script = script.Default()
	}
	if sess.store == nil {
		sess.store = memory.NewStore()
	}
	if sess.sleep == nil {
		sess.sleep = timer.Scaled(timer.Sleep, sess.timeScale)
	}
	if sess.scheduler == nil {
		sess.scheduler = timer.NewScheduler(sess.timeScale)
	}
	if sess.Name == "" {
		sess.Name = sess.script.Name()
	}
	logger := sess.logger.With("script", sess.Name)

	managerOpts := []session.Option{session.WithLogger(logger)}
	if sess.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(sess.locker))
	}
	sess.sessions = session.NewManager(sess.store, managerOpts...)

	sess.recorder = transcript.NewRecorder(sess.sessions, sess.scheduler,
		transcript.WithLogger(logger),
		transcript.WithOnMessage(sess.hooks.OnMessage),
		transcript.WithMaxInputSize(sess.maxInput),
	)

	// The payment display is recorded as a bot message carrying the PIX data.
	hooks := domain.MergeHooks(domain.LifecycleHooks{
		OnShowPixPayment: func(ctx context.Context, pix domain.PixAttachment) {
			if _, err := sess.recorder.Emit(ctx, domain.Outbound{Kind: domain.KindText, Pix: &pix}); err != nil {
				logger.Warn("Failed to record payment display", "err", err)
			}
		},
	}, sess.hooks)
	hooks.OnMessage = nil

	engineOpts := []sequencer.Option{
		sequencer.WithLogger(logger),
		sequencer.WithHooks(hooks),
		sequencer.WithSleep(sess.sleep),
		sequencer.WithScheduler(sess.scheduler),
	}
	if sess.payments != nil {
		engineOpts = append(engineOpts, sequencer.WithPayments(sess.payments))
	}
	sess.engine = sequencer.New(sess.script, sess.sessions, sess.recorder, sess.recorder, engineOpts...)
	return sess, nil
}

// Start signals that the host is ready and begins autonomous playback from
// the persisted step.
func (s *Session) Start(ctx context.Context) error {
	return s.engine.Start()
}

// Reply records a lead message and runs the reply gate. The recorded message
// is returned even when the gate fails.
func (s *Session) Reply(ctx context.Context, in domain.Inbound) (domain.Message, error) {
	msg, err := s.recorder.AppendLead(ctx, in)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, s.engine.HandleReply(ctx)
}

// SendText records a text reply from the lead.
func (s *Session) SendText(ctx context.Context, text string) (domain.Message, error) {
	return s.Reply(ctx, domain.Inbound{Kind: domain.KindText, Content: text})
}

// SendMedia records an image, audio or video reply from the lead.
func (s *Session) SendMedia(ctx context.Context, kind domain.ContentKind, ref string, duration time.Duration) (domain.Message, error) {
	return s.Reply(ctx, domain.Inbound{Kind: kind, MediaRef: ref, Duration: duration})
}

// SelectPaymentAmount runs the legacy payment creation for amount.
func (s *Session) SelectPaymentAmount(ctx context.Context, amount float64) error {
	return s.engine.SelectPaymentAmount(ctx, amount)
}

// Process triggers one engine invocation. Playback normally drives itself;
// this unsticks a session after a failed step.
func (s *Session) Process(ctx context.Context) error {
	return s.engine.Process(ctx)
}

// Transcript returns the persisted conversation.
func (s *Session) Transcript(ctx context.Context) []domain.Message {
	return s.recorder.Messages(ctx)
}

// Status returns a snapshot of the engine.
func (s *Session) Status(ctx context.Context) Status {
	return s.engine.Status(ctx)
}

// Script returns the script being played.
func (s *Session) Script() *script.Script {
	return s.script
}

// Store returns the persistence backend.
func (s *Session) Store() ports.Store {
	return s.store
}

// Reset clears the conversation and restarts from the first step.
func (s *Session) Reset(ctx context.Context) error {
	return s.engine.Reset(ctx)
}

// Close stops playback and cancels pending delays.
func (s *Session) Close() error {
	return s.engine.Close()
}
