package script

import (
	"errors"
	"fmt"

	"github.com/aretw0/drip/pkg/domain"
)

// NoCheckpoint marks a script without a proof-of-receipt gate.
const NoCheckpoint = -1

// Script is a fixed, ordered sequence of steps.
type Script struct {
	name             string
	steps            []domain.Step
	checkpoint       int
	reprompts        []string
	confirmation     string
	followUp         string
	paymentReminders []string
}

// Option configures a Script under construction.
type Option func(*Script)

// WithName labels the script.
func WithName(name string) Option {
	return func(s *Script) {
		s.name = name
	}
}

// WithCheckpoint marks the step index that requires proof of receipt.
func WithCheckpoint(index int) Option {
	return func(s *Script) {
		s.checkpoint = index
	}
}

// WithReprompts sets the escalating messages sent while proof is missing.
func WithReprompts(messages ...string) Option {
	return func(s *Script) {
		s.reprompts = append([]string(nil), messages...)
	}
}

// WithConfirmation sets the message sent once proof arrives and the follow-up
// sent right after it.
func WithConfirmation(confirmation, followUp string) Option {
	return func(s *Script) {
		s.confirmation = confirmation
		s.followUp = followUp
	}
}

// WithPaymentReminders sets the escalating messages of the payment gate.
func WithPaymentReminders(messages ...string) Option {
	return func(s *Script) {
		s.paymentReminders = append([]string(nil), messages...)
	}
}

// New validates steps and returns an immutable Script.
func New(steps []domain.Step, opts ...Option) (*Script, error) {
	s := &Script{
		steps:      append([]domain.Step(nil), steps...),
		checkpoint: NoCheckpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on an invalid script.
// Intended for scripts compiled into the binary.
func MustNew(steps []domain.Step, opts ...Option) *Script {
	s, err := New(steps, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Script) validate() error {
	var errs []error
	for i, step := range s.steps {
		if err := validateStep(step); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
		}
	}

	if s.checkpoint != NoCheckpoint {
		switch {
		case s.checkpoint < 0 || s.checkpoint >= len(s.steps):
			errs = append(errs, fmt.Errorf("checkpoint %d outside script of %d steps", s.checkpoint, len(s.steps)))
		case s.steps[s.checkpoint].Action != domain.ActionWaitForReply:
			errs = append(errs, fmt.Errorf("checkpoint %d must be a %s step, got %s", s.checkpoint, domain.ActionWaitForReply, s.steps[s.checkpoint].Action))
		}
		if len(s.reprompts) == 0 {
			errs = append(errs, errors.New("checkpoint requires at least one re-prompt"))
		}
		if s.confirmation == "" {
			errs = append(errs, errors.New("checkpoint requires a confirmation message"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidScript, err)
	}
	return nil
}

func validateStep(step domain.Step) error {
	if !step.Action.Valid() {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	if step.TypingDelay < 0 || step.Duration < 0 {
		return errors.New("delays must not be negative")
	}
	if step.Action != domain.ActionSendMessage {
		return nil
	}
	if !step.Kind.Valid() {
		return fmt.Errorf("unknown message kind %q", step.Kind)
	}
	if step.Kind == domain.KindText && step.Text == "" {
		return errors.New("text message without text")
	}
	if step.Kind.IsMedia() && step.MediaRef == "" {
		return fmt.Errorf("%s message without media reference", step.Kind)
	}
	return nil
}

// Name returns the script label.
func (s *Script) Name() string {
	return s.name
}

// Len returns the number of steps.
func (s *Script) Len() int {
	return len(s.steps)
}

// Get returns the step at index.
func (s *Script) Get(index int) (domain.Step, error) {
	if index < 0 || index >= len(s.steps) {
		return domain.Step{}, fmt.Errorf("%w: %d of %d", domain.ErrStepOutOfRange, index, len(s.steps))
	}
	return s.steps[index], nil
}

// Steps returns a copy of all steps.
func (s *Script) Steps() []domain.Step {
	return append([]domain.Step(nil), s.steps...)
}

// Checkpoint returns the proof-of-receipt step index, if any.
func (s *Script) Checkpoint() (int, bool) {
	return s.checkpoint, s.checkpoint != NoCheckpoint
}

// IsCheckpoint reports whether index is the proof-of-receipt checkpoint.
func (s *Script) IsCheckpoint(index int) bool {
	return s.checkpoint != NoCheckpoint && index == s.checkpoint
}

// Reprompt returns the re-prompt for the given attempt, clamped to the last one.
func (s *Script) Reprompt(attempt int) string {
	return clamp(s.reprompts, attempt)
}

// Reprompts returns a copy of the re-prompt list.
func (s *Script) Reprompts() []string {
	return append([]string(nil), s.reprompts...)
}

// Confirmation returns the proof-accepted message.
func (s *Script) Confirmation() string {
	return s.confirmation
}

// FollowUp returns the message sent right after the confirmation.
func (s *Script) FollowUp() string {
	return s.followUp
}

// PaymentReminder returns the payment reminder for the given attempt, clamped.
func (s *Script) PaymentReminder(attempt int) string {
	return clamp(s.paymentReminders, attempt)
}

// PaymentReminders returns a copy of the payment reminder list.
func (s *Script) PaymentReminders() []string {
	return append([]string(nil), s.paymentReminders...)
}

// UsesPayments reports whether any step belongs to the legacy payment flow.
func (s *Script) UsesPayments() bool {
	for _, step := range s.steps {
		if step.Action.IsPayment() {
			return true
		}
	}
	return false
}

func clamp(list []string, i int) string {
	if len(list) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	if i > len(list)-1 {
		i = len(list) - 1
	}
	return list[i]
}
