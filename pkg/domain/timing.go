package domain

import (
	"time"
	"unicode/utf16"
)

// Timing constants of the typing simulation.
const (
	// DefaultTypingDelay is the pre-action pause of a SendMessage step that
	// does not author its own.
	DefaultTypingDelay = 2000 * time.Millisecond
	// DefaultAudioDuration is used for audio steps without a duration.
	DefaultAudioDuration = 5 * time.Second

	// PerCharacterDelay and MinTextDelay define the text typing delay.
	PerCharacterDelay = 50 * time.Millisecond
	MinTextDelay      = 800 * time.Millisecond

	// MediaDelay is the fixed typing delay of image and video messages.
	MediaDelay = 2000 * time.Millisecond

	// LabelSettle is inserted after leaving an activity label and again
	// before the message is emitted.
	LabelSettle = 50 * time.Millisecond

	// StepSettle separates a completed SendMessage step from the next invocation.
	StepSettle = 500 * time.Millisecond
	// ReplySettle separates a generic reply from the next invocation.
	ReplySettle = 1000 * time.Millisecond
	// PaymentSettle is the settling delay of the payment display steps.
	PaymentSettle = 1000 * time.Millisecond
	// ReplyPause precedes gate re-prompts and confirmations.
	ReplyPause = 1000 * time.Millisecond
	// PaymentTypingDelay is the typing simulation while a payment is created.
	PaymentTypingDelay = 2000 * time.Millisecond
	// PixRevealDelay separates payment creation from its display, and the
	// display from the next invocation.
	PixRevealDelay = 500 * time.Millisecond
)

// TextLength counts UTF-16 code units, the unit the typing formula was tuned on.
func TextLength(text string) int {
	return len(utf16.Encode([]rune(text)))
}

// TextTypingDelay returns max(len(text)*50ms, 800ms).
func TextTypingDelay(text string) time.Duration {
	d := time.Duration(TextLength(text)) * PerCharacterDelay
	if d < MinTextDelay {
		return MinTextDelay
	}
	return d
}

// ComposeDelay returns how long the typing or recording indicator stays on
// before a message of the given kind is emitted.
func ComposeDelay(kind ContentKind, text string, audio time.Duration) time.Duration {
	switch kind {
	case KindText:
		return TextTypingDelay(text)
	case KindAudio:
		if audio <= 0 {
			audio = DefaultAudioDuration
		}
		return audio
	default:
		return MediaDelay
	}
}

// Delivery simulation of lead messages.
const (
	LeadSentAfter      = 100 * time.Millisecond
	LeadDeliveredAfter = 3000 * time.Millisecond
)
