package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/drip/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured record per
// engine transition and recorded message.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, string(e.Type), "step_index", e.StepIndex, "action", e.Action, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, string(e.Type), "step_index", e.StepIndex, "action", e.Action)
		},
		OnMessage: func(ctx context.Context, m domain.Message) {
			logger.DebugContext(ctx, "message",
				"id", m.ID,
				"originator", m.Originator,
				"kind", m.Kind,
				"status", m.DeliveryStatus,
			)
		},
		OnShowPaymentButtons: func(ctx context.Context) {
			logger.InfoContext(ctx, "payment_buttons")
		},
	}
}
