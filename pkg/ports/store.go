package ports

import (
	"context"

	"github.com/aretw0/drip/pkg/domain"
)

// Store persists the narrative position of the single conversation.
// This allows for durable execution, enabling "Stop & Resume" of a script.
//
// Getters never fail: an absent or unreadable record yields its default
// (step 0, empty transcript, no payment), so a corrupt session restarts from
// the beginning instead of crashing the engine.
type Store interface {
	// StepIndex returns the current step index, 0 if absent.
	StepIndex(ctx context.Context) int
	// SetStepIndex persists the step index.
	SetStepIndex(ctx context.Context, n int) error
	// ResetStepIndex sets the step index back to 0.
	ResetStepIndex(ctx context.Context) error

	// Transcript returns the ordered transcript, empty if absent.
	Transcript(ctx context.Context) []domain.Message
	// SetTranscript replaces the transcript.
	SetTranscript(ctx context.Context, messages []domain.Message) error
	// ClearTranscript removes the transcript.
	ClearTranscript(ctx context.Context) error

	// PaymentData returns the stored payment, nil if absent.
	PaymentData(ctx context.Context) *domain.PaymentData
	// SetPaymentData persists payment data.
	SetPaymentData(ctx context.Context, data domain.PaymentData) error
	// ClearPaymentData removes the payment data.
	ClearPaymentData(ctx context.Context) error
}
