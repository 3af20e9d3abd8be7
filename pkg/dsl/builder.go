package dsl

import (
	"fmt"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
)

// Builder accumulates steps and gate settings.
type Builder struct {
	name       string
	steps      []domain.Step
	checkpoint int
	reprompts  []string
	confirm    string
	followUp   string
	reminders  []string
	delay      time.Duration
}

// New creates a new script builder.
func New(name string) *Builder {
	return &Builder{
		name:       name,
		checkpoint: script.NoCheckpoint,
	}
}

// Delay sets the typing delay of the next message step only.
func (b *Builder) Delay(d time.Duration) *Builder {
	b.delay = d
	return b
}

func (b *Builder) add(step domain.Step) *Builder {
	if step.Action == domain.ActionSendMessage {
		step.TypingDelay = b.delay
		b.delay = 0
	}
	b.steps = append(b.steps, step)
	return b
}

// Text appends a text message.
func (b *Builder) Text(text string) *Builder {
	return b.add(domain.SendText(text, 0))
}

// Audio appends an audio message of the given length.
func (b *Builder) Audio(ref string, duration time.Duration) *Builder {
	return b.add(domain.SendAudio(ref, duration, 0))
}

// Image appends an image with an optional caption.
func (b *Builder) Image(ref, caption string) *Builder {
	return b.add(domain.SendImage(ref, caption, 0))
}

// Video appends a video with an optional caption.
func (b *Builder) Video(ref, caption string) *Builder {
	return b.add(domain.SendVideo(ref, caption, 0))
}

// WaitForReply appends a reply pause point.
func (b *Builder) WaitForReply() *Builder {
	return b.add(domain.WaitForReply())
}

// PaymentButtons appends the legacy payment amount prompt.
func (b *Builder) PaymentButtons() *Builder {
	return b.add(domain.Step{Action: domain.ActionShowPaymentButtons})
}

// Pix appends the legacy PIX display step.
func (b *Builder) Pix() *Builder {
	return b.add(domain.Step{Action: domain.ActionShowPixPayment})
}

// WaitForPayment appends the legacy payment pause point.
func (b *Builder) WaitForPayment() *Builder {
	return b.add(domain.Step{Action: domain.ActionWaitForPayment})
}

// Checkpoint appends a reply pause point that requires proof of receipt.
func (b *Builder) Checkpoint() *Builder {
	b.checkpoint = len(b.steps)
	return b.WaitForReply()
}

// Reprompts sets the escalating messages sent while proof is missing.
func (b *Builder) Reprompts(messages ...string) *Builder {
	b.reprompts = append(b.reprompts, messages...)
	return b
}

// Confirmation sets the proof-accepted message and its follow-up.
func (b *Builder) Confirmation(message, followUp string) *Builder {
	b.confirm = message
	b.followUp = followUp
	return b
}

// PaymentReminders sets the escalating messages of the payment gate.
func (b *Builder) PaymentReminders(messages ...string) *Builder {
	b.reminders = append(b.reminders, messages...)
	return b
}

// Build validates and compiles the script.
func (b *Builder) Build() (*script.Script, error) {
	s, err := script.New(b.steps,
		script.WithName(b.name),
		script.WithCheckpoint(b.checkpoint),
		script.WithReprompts(b.reprompts...),
		script.WithConfirmation(b.confirm, b.followUp),
		script.WithPaymentReminders(b.reminders...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build script %q: %w", b.name, err)
	}
	return s, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *script.Script {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
