package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter    EventType = "step_enter"
	EventStepComplete EventType = "step_complete"
	EventStepError    EventType = "step_error"
	EventSuspend      EventType = "suspend"
	EventFinished     EventType = "finished"
	EventReprompt     EventType = "reprompt"
	EventProofAccept  EventType = "proof_accepted"
)

// StepEvent describes a sequencer transition at a script position.
type StepEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      EventType  `json:"type"`
	StepIndex int        `json:"step_index"`
	Action    ActionType `json:"action,omitempty"`
	Err       error      `json:"-"`
}

// LifecycleHooks are the host capabilities and observability callbacks of the
// engine. Every field is optional.
type LifecycleHooks struct {
	// Status observer.
	OnStatusChange func(ctx context.Context, label StatusLabel)
	OnTypingStart  func(ctx context.Context)
	OnTypingEnd    func(ctx context.Context)

	// Legacy payment presentation.
	OnShowPaymentButtons func(ctx context.Context)
	OnShowPixPayment     func(ctx context.Context, pix PixAttachment)

	// Observability.
	OnStep    func(ctx context.Context, e *StepEvent)
	OnMessage func(ctx context.Context, m Message)
}

// MergeHooks returns hooks that call each non-nil callback of every input in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range all {
		h := h
		out.OnStatusChange = chain2(out.OnStatusChange, h.OnStatusChange)
		out.OnTypingStart = chain1(out.OnTypingStart, h.OnTypingStart)
		out.OnTypingEnd = chain1(out.OnTypingEnd, h.OnTypingEnd)
		out.OnShowPaymentButtons = chain1(out.OnShowPaymentButtons, h.OnShowPaymentButtons)
		out.OnShowPixPayment = chain2(out.OnShowPixPayment, h.OnShowPixPayment)
		out.OnStep = chain2(out.OnStep, h.OnStep)
		out.OnMessage = chain2(out.OnMessage, h.OnMessage)
	}
	return out
}

func chain1(a, b func(context.Context)) func(context.Context) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context) {
		a(ctx)
		b(ctx)
	}
}

func chain2[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
