package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/drip/pkg/domain"
)

// HandleReply runs the reply gate. The host appends the lead's message to the
// transcript first, then calls HandleReply.
//
// Outside a suspended state the call is a no-op. At the proof-of-receipt
// checkpoint a text reply is answered with the next re-prompt and a media reply
// is accepted; any other pause point simply resumes.
func (e *Engine) HandleReply(ctx context.Context) error {
	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	state, gen := e.state, e.gen
	e.mu.Unlock()

	ctx, release := e.bind(ctx)
	defer release()

	switch state {
	case domain.StateWaitingForPayment:
		if e.payments == nil {
			e.logger.Debug("Reply ignored, payments disabled")
			return nil
		}
		return e.checkPayment(ctx, gen)
	case domain.StateWaitingForReply:
	default:
		e.logger.Debug("Reply ignored, engine not suspended", "state", state)
		return nil
	}

	index := e.store.StepIndex(ctx)
	if e.script.IsCheckpoint(index) {
		return e.checkpoint(ctx, gen, index)
	}

	e.logger.Info("Reply received, resuming", "step_index", index)
	return e.resume(ctx, gen, index, domain.StateWaitingForReply, domain.ReplySettle)
}

func (e *Engine) checkpoint(ctx context.Context, gen uint64, index int) error {
	last, ok := e.reader.Last(ctx)
	if !ok || !last.FromLead() {
		e.logger.Debug("Checkpoint reply ignored, last message is not from the lead", "step_index", index)
		return nil
	}

	if last.Kind == domain.KindText {
		e.mu.Lock()
		attempt := e.retries
		e.mu.Unlock()

		e.logger.Info("Proof of receipt missing, re-prompting", "step_index", index, "attempt", attempt+1)
		e.event(ctx, domain.EventReprompt, index, domain.ActionWaitForReply, nil)
		if err := e.say(ctx, e.script.Reprompt(attempt)); err != nil {
			return err
		}

		// Only a delivered re-prompt counts.
		e.mu.Lock()
		if e.gen == gen {
			e.retries = attempt + 1
		}
		e.mu.Unlock()
		return nil
	}

	e.logger.Info("Proof of receipt accepted", "step_index", index, "kind", last.Kind)
	if err := e.confirm(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	if e.gen == gen {
		e.retries = 0
	}
	e.mu.Unlock()
	e.event(ctx, domain.EventProofAccept, index, domain.ActionWaitForReply, nil)
	return e.resume(ctx, gen, index, domain.StateWaitingForReply, domain.StepSettle)
}

// confirm emits the confirmation and, right after it, the follow-up.
func (e *Engine) confirm(ctx context.Context) error {
	if text := e.script.Confirmation(); text != "" {
		if err := e.say(ctx, text); err != nil {
			return err
		}
	}
	followUp := e.script.FollowUp()
	if followUp == "" {
		return nil
	}
	if err := e.sleep(ctx, domain.LabelSettle); err != nil {
		return err
	}
	if _, err := e.sink.Emit(ctx, domain.Outbound{Kind: domain.KindText, Content: followUp}); err != nil {
		return fmt.Errorf("failed to emit message: %w", err)
	}
	return nil
}

// resume leaves a suspended state: it advances past index, goes idle and
// schedules the next invocation after settle.
func (e *Engine) resume(ctx context.Context, gen uint64, index int, from domain.EngineState, settle time.Duration) error {
	e.mu.Lock()
	stale := e.gen != gen || e.state != from
	e.mu.Unlock()
	if stale {
		return nil
	}

	if err := e.store.SetStepIndex(ctx, index+1); err != nil {
		return fmt.Errorf("failed to advance step: %w", err)
	}

	e.mu.Lock()
	if e.gen != gen || e.state != from {
		e.mu.Unlock()
		return nil
	}
	e.state = domain.StateIdle
	e.mu.Unlock()

	e.event(ctx, domain.EventStepComplete, index, "", nil)
	e.continueAfter(ticket{gen: gen}, settle)
	return nil
}
