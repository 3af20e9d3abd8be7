package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/internal/timer"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/aretw0/drip/pkg/script"
)

// Engine is the single-flight script runner of one conversation.
type Engine struct {
	script    *script.Script
	store     ports.Store
	sink      ports.MessageSink
	reader    ports.TranscriptReader
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	sleep     ports.SleepFunc
	scheduler ports.Scheduler
	payments  ports.PaymentClient

	// gate serializes reply handling and payment selection.
	gate sync.Mutex

	mu          sync.Mutex
	state       domain.EngineState
	retries     int
	attempts    int
	initialized bool
	closed      bool
	gen         uint64 // bumped by Reset; stale work checks it before committing
	run         uint64 // id of the invocation holding StateProcessing
	runCtx      context.Context
	cancelRun   context.CancelFunc
}

// ticket identifies one invocation holding the processing guard.
type ticket struct {
	gen uint64
	run uint64
}

// Status is a point-in-time view of the engine.
type Status struct {
	State           domain.EngineState `json:"state"`
	StepIndex       int                `json:"step_index"`
	Steps           int                `json:"steps"`
	Retries         int                `json:"retries"`
	PaymentAttempts int                `json:"payment_attempts"`
	Initialized     bool               `json:"initialized"`
}

// New creates an engine for s. The engine does not run until Start.
func New(s *script.Script, store ports.Store, sink ports.MessageSink, reader ports.TranscriptReader, opts ...Option) *Engine {
	e := &Engine{
		script: s,
		store:  store,
		sink:   sink,
		reader: reader,
		logger: logging.NewNop(),
		sleep:  timer.Sleep,
		state:  domain.StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = timer.NewScheduler(1)
	}
	e.runCtx, e.cancelRun = context.WithCancel(context.Background())

	if s.UsesPayments() && e.payments == nil {
		e.logger.Warn("Script contains payment steps but payments are disabled; they will be skipped")
	}
	return e
}

// Start marks the host as initialized and schedules the first invocation.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	e.initialized = true
	gen := e.gen
	e.mu.Unlock()

	e.logger.Info("Engine started", "step_index", e.store.StepIndex(context.Background()), "steps", e.script.Len())
	e.continueAfter(ticket{gen: gen}, 0)
	return nil
}

// State returns the current engine state.
func (e *Engine) State() domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot of the engine.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.Lock()
	st := Status{
		State:           e.state,
		Steps:           e.script.Len(),
		Retries:         e.retries,
		PaymentAttempts: e.attempts,
		Initialized:     e.initialized,
	}
	e.mu.Unlock()
	st.StepIndex = e.store.StepIndex(ctx)
	return st
}

// Script returns the script being played.
func (e *Engine) Script() *script.Script {
	return e.script
}

// Process runs one invocation: it executes the step at the persisted index
// and schedules whatever continuation that step requires.
// A trigger that arrives while another invocation holds the engine, or while
// the engine is suspended or finished, is a silent no-op.
func (e *Engine) Process(ctx context.Context) error {
	t, ok, err := e.acquire(false)
	if err != nil || !ok {
		return err
	}
	ctx, release := e.bind(ctx)
	defer release()

	if err := e.safeRun(ctx, t); err != nil {
		e.fault(ctx, t, err)
		return err
	}
	return nil
}

// Reset clears the persisted session and all in-memory state, then restarts
// from step 0 if the engine was started.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	e.gen++
	e.cancelRun()
	e.runCtx, e.cancelRun = context.WithCancel(context.Background())
	e.state = domain.StateIdle
	e.retries = 0
	e.attempts = 0
	gen := e.gen
	started := e.initialized
	e.mu.Unlock()

	var errs []error
	if err := e.store.ResetStepIndex(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.ClearTranscript(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.ClearPaymentData(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	e.logger.Info("Session reset")
	if started {
		e.continueAfter(ticket{gen: gen}, 0)
	}
	return nil
}

// Close cancels in-flight delays and every pending continuation.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.cancelRun()
	e.scheduler.Stop()
	return nil
}

// acquire takes the processing guard. fromPayment additionally allows taking
// it while suspended on a payment.
func (e *Engine) acquire(fromPayment bool) (ticket, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ticket{}, false, domain.ErrClosed
	}
	if !e.initialized {
		return ticket{}, false, domain.ErrNotInitialized
	}

	allowed := e.state.CanTransition(domain.StateProcessing) ||
		(fromPayment && e.state == domain.StateWaitingForPayment)
	if !allowed {
		e.logger.Debug("Trigger dropped", "state", e.state)
		return ticket{}, false, nil
	}

	e.state = domain.StateProcessing
	e.run++
	return ticket{gen: e.gen, run: e.run}, true, nil
}

// holds reports whether t still owns the processing guard.
func (e *Engine) holds(t ticket) bool {
	return e.gen == t.gen && e.run == t.run && e.state == domain.StateProcessing
}

// leave moves the engine out of Processing if t still holds the guard.
func (e *Engine) leave(t ticket, next domain.EngineState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.holds(t) {
		return false
	}
	if !e.state.CanTransition(next) {
		e.logger.Error("Illegal state transition", "from", e.state, "to", next)
		return false
	}
	e.state = next
	return true
}

// bind detaches ctx from its caller and ties it to the engine lifetime, so
// only Reset and Close cancel its delays. A caller that goes away mid-step
// does not leave the step half done. Values such as request IDs are kept.
func (e *Engine) bind(ctx context.Context) (context.Context, func()) {
	e.mu.Lock()
	run := e.runCtx
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(run, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// continueAfter schedules the next invocation. A continuation scheduled by an
// invocation that still holds the guard releases it before re-entering.
func (e *Engine) continueAfter(t ticket, d time.Duration) {
	e.scheduler.After(d, func() {
		e.mu.Lock()
		if e.closed || e.gen != t.gen {
			e.mu.Unlock()
			return
		}
		if t.run != 0 && e.holds(t) {
			e.state = domain.StateIdle
		}
		e.mu.Unlock()

		// Failures are logged by Process.
		_ = e.Process(context.Background())
	})
}

func (e *Engine) safeRun(ctx context.Context, t ticket) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.runStep(ctx, t)
}

func (e *Engine) fault(ctx context.Context, t ticket, err error) {
	index := e.store.StepIndex(ctx)
	e.logger.Error("Step execution failed; it will be retried on the next trigger",
		"step_index", index,
		"err", err,
	)
	e.event(ctx, domain.EventStepError, index, "", err)
	e.leave(t, domain.StateIdle)
}

func (e *Engine) runStep(ctx context.Context, t ticket) error {
	index := e.store.StepIndex(ctx)
	if index >= e.script.Len() {
		if e.leave(t, domain.StateFinished) {
			e.logger.Info("Script finished", "step_index", index)
			e.event(ctx, domain.EventFinished, index, "", nil)
		}
		return nil
	}

	step, err := e.script.Get(index)
	if err != nil {
		return err
	}
	log := e.logger.With("step_index", index, "action", step.Action)
	log.Debug("Entering step")
	e.event(ctx, domain.EventStepEnter, index, step.Action, nil)

	if step.Action.IsPayment() && e.payments == nil {
		log.Warn("Skipping payment step, payments disabled")
		return e.complete(ctx, t, index, step, 0)
	}

	switch step.Action {
	case domain.ActionWaitForReply:
		e.suspend(ctx, t, index, step, domain.StateWaitingForReply)
		return nil

	case domain.ActionWaitForPayment:
		e.suspend(ctx, t, index, step, domain.StateWaitingForPayment)
		return nil

	case domain.ActionShowPaymentButtons:
		if err := e.sleep(ctx, domain.PaymentSettle); err != nil {
			return err
		}
		if e.hooks.OnShowPaymentButtons != nil {
			e.hooks.OnShowPaymentButtons(ctx)
		}
		return e.complete(ctx, t, index, step, 0)

	case domain.ActionShowPixPayment:
		data := e.store.PaymentData(ctx)
		if data == nil {
			// Nothing to show until an amount is selected.
			e.suspend(ctx, t, index, step, domain.StateWaitingForPayment)
			return nil
		}
		if err := e.sleep(ctx, domain.PaymentSettle); err != nil {
			return err
		}
		e.showPix(ctx, *data)
		return e.complete(ctx, t, index, step, 0)

	case domain.ActionSendMessage:
		if err := e.send(ctx, index, step); err != nil {
			return err
		}
		return e.complete(ctx, t, index, step, domain.StepSettle)
	}

	return fmt.Errorf("unknown action %q", step.Action)
}

// complete advances past index and schedules the continuation, which keeps
// holding the guard until it fires.
func (e *Engine) complete(ctx context.Context, t ticket, index int, step domain.Step, settle time.Duration) error {
	e.mu.Lock()
	current := e.holds(t)
	e.mu.Unlock()
	if !current {
		return nil
	}

	if err := e.store.SetStepIndex(ctx, index+1); err != nil {
		return fmt.Errorf("failed to advance step: %w", err)
	}
	e.event(ctx, domain.EventStepComplete, index, step.Action, nil)
	e.continueAfter(t, settle)
	return nil
}

func (e *Engine) suspend(ctx context.Context, t ticket, index int, step domain.Step, state domain.EngineState) {
	if e.leave(t, state) {
		e.logger.Info("Suspended", "step_index", index, "state", state)
		e.event(ctx, domain.EventSuspend, index, step.Action, nil)
	}
}

// send runs the pre-action pause and the typing simulation, then emits the
// step's message keyed by its index.
func (e *Engine) send(ctx context.Context, index int, step domain.Step) error {
	pre := step.TypingDelay
	if pre == 0 {
		pre = domain.DefaultTypingDelay
	}
	if err := e.sleep(ctx, pre); err != nil {
		return err
	}

	out := domain.Outbound{
		Kind:           step.Kind,
		Content:        step.Text,
		MediaRef:       step.MediaRef,
		IdempotencyKey: StepKey(index),
	}
	if step.Kind == domain.KindAudio {
		out.Duration = step.Duration
		if out.Duration <= 0 {
			out.Duration = domain.DefaultAudioDuration
		}
	}

	delay := domain.ComposeDelay(step.Kind, step.Text, step.Duration)
	if err := e.compose(ctx, domain.LabelFor(step.Kind), delay); err != nil {
		return err
	}
	if _, err := e.sink.Emit(ctx, out); err != nil {
		return fmt.Errorf("failed to emit message: %w", err)
	}
	return nil
}

// compose runs the status sequence online -> label -> online around d.
func (e *Engine) compose(ctx context.Context, label domain.StatusLabel, d time.Duration) error {
	e.status(ctx, label)
	if e.hooks.OnTypingStart != nil {
		e.hooks.OnTypingStart(ctx)
	}

	err := e.sleep(ctx, d)

	if e.hooks.OnTypingEnd != nil {
		e.hooks.OnTypingEnd(ctx)
	}
	if err != nil {
		e.status(ctx, domain.LabelOnline)
		return err
	}
	if err := e.sleep(ctx, domain.LabelSettle); err != nil {
		e.status(ctx, domain.LabelOnline)
		return err
	}
	e.status(ctx, domain.LabelOnline)
	return e.sleep(ctx, domain.LabelSettle)
}

// say emits an unkeyed gate message after the reply pause and typing simulation.
func (e *Engine) say(ctx context.Context, text string) error {
	if err := e.sleep(ctx, domain.ReplyPause); err != nil {
		return err
	}
	if err := e.compose(ctx, domain.LabelTyping, domain.TextTypingDelay(text)); err != nil {
		return err
	}
	if _, err := e.sink.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: text}); err != nil {
		return fmt.Errorf("failed to emit message: %w", err)
	}
	return nil
}

func (e *Engine) status(ctx context.Context, label domain.StatusLabel) {
	if e.hooks.OnStatusChange != nil {
		e.hooks.OnStatusChange(ctx, label)
	}
}

func (e *Engine) showPix(ctx context.Context, data domain.PaymentData) {
	if e.hooks.OnShowPixPayment != nil {
		e.hooks.OnShowPixPayment(ctx, domain.PixAttachment{QRImage: data.QRImage, QRText: data.QRText})
	}
}

func (e *Engine) event(ctx context.Context, typ domain.EventType, index int, action domain.ActionType, err error) {
	if e.hooks.OnStep == nil {
		return
	}
	e.hooks.OnStep(ctx, &domain.StepEvent{
		Timestamp: time.Now(),
		Type:      typ,
		StepIndex: index,
		Action:    action,
		Err:       err,
	})
}

// StepKey is the idempotency key of the message emitted by the step at index.
func StepKey(index int) string {
	return fmt.Sprintf("step:%d", index)
}
