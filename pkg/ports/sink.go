package ports

import (
	"context"

	"github.com/aretw0/drip/pkg/domain"
)

// MessageSink appends bot messages to the transcript.
// The engine assumes Emit is reflected in the transcript before it returns,
// because the reply gate inspects the transcript on the next reply.
type MessageSink interface {
	Emit(ctx context.Context, msg domain.Outbound) (domain.Message, error)
}

// TranscriptReader gives the reply gate read access to the transcript.
type TranscriptReader interface {
	Last(ctx context.Context) (domain.Message, bool)
}
