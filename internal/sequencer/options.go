package sequencer

import (
	"log/slog"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
)

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers host callbacks. Multiple calls are merged in order.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = domain.MergeHooks(e.hooks, hooks)
	}
}

// WithSleep replaces the pause primitive used for every simulated delay.
func WithSleep(sleep ports.SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithScheduler replaces the scheduler that runs continuations.
func WithScheduler(s ports.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithPayments enables the legacy payment flow backed by client.
func WithPayments(client ports.PaymentClient) Option {
	return func(e *Engine) {
		e.payments = client
	}
}
