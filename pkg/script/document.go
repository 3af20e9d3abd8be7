package script

import (
	"fmt"
	"os"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a Script.
// JSON documents are accepted too, since JSON is a subset of YAML.
type Document struct {
	Name             string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Checkpoint       *int           `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty" mapstructure:"checkpoint"`
	Gate             GateDocument   `json:"gate,omitempty" yaml:"gate,omitempty" mapstructure:"gate"`
	PaymentReminders []string       `json:"payment_reminders,omitempty" yaml:"payment_reminders,omitempty" mapstructure:"payment_reminders"`
	Steps            []StepDocument `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// GateDocument configures the reply gate.
type GateDocument struct {
	Reprompts    []string `json:"reprompts,omitempty" yaml:"reprompts,omitempty" mapstructure:"reprompts"`
	Confirmation string   `json:"confirmation,omitempty" yaml:"confirmation,omitempty" mapstructure:"confirmation"`
	FollowUp     string   `json:"follow_up,omitempty" yaml:"follow_up,omitempty" mapstructure:"follow_up"`
}

// StepDocument is the serialized form of a Step.
// Delays accept duration strings ("1.5s") or the integer *_ms / *_seconds keys.
type StepDocument struct {
	Action          string        `json:"action" yaml:"action" mapstructure:"action"`
	Kind            string        `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Text            string        `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
	Media           string        `json:"media,omitempty" yaml:"media,omitempty" mapstructure:"media"`
	Duration        time.Duration `json:"duration,omitempty" yaml:"duration,omitempty" mapstructure:"duration"`
	DurationSeconds int           `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty" mapstructure:"duration_seconds"`
	TypingDelay     time.Duration `json:"typing_delay,omitempty" yaml:"typing_delay,omitempty" mapstructure:"typing_delay"`
	TypingDelayMs   int           `json:"typing_delay_ms,omitempty" yaml:"typing_delay_ms,omitempty" mapstructure:"typing_delay_ms"`
	Checkpoint      bool          `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty" mapstructure:"checkpoint"`
}

// Step converts the document into a domain step.
func (d StepDocument) Step() domain.Step {
	step := domain.Step{
		Action:      domain.ActionType(d.Action),
		Kind:        domain.ContentKind(d.Kind),
		Text:        d.Text,
		MediaRef:    d.Media,
		Duration:    d.Duration,
		TypingDelay: d.TypingDelay,
	}
	if step.Action == domain.ActionSendMessage && step.Kind == "" {
		step.Kind = domain.KindText
	}
	if d.DurationSeconds > 0 {
		step.Duration = time.Duration(d.DurationSeconds) * time.Second
	}
	if d.TypingDelayMs > 0 {
		step.TypingDelay = time.Duration(d.TypingDelayMs) * time.Millisecond
	}
	return step
}

// DecodeMap decodes a generic map (from YAML, JSON or frontmatter) into v,
// rejecting unknown keys.
func DecodeMap(input any, v any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      v,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Build compiles the document into a validated Script.
func (d Document) Build() (*Script, error) {
	steps := make([]domain.Step, 0, len(d.Steps))
	checkpoint := NoCheckpoint
	if d.Checkpoint != nil {
		checkpoint = *d.Checkpoint
	}
	for i, sd := range d.Steps {
		if sd.Checkpoint {
			if checkpoint != NoCheckpoint && checkpoint != i {
				return nil, fmt.Errorf("%w: checkpoint declared at both %d and %d", domain.ErrInvalidScript, checkpoint, i)
			}
			checkpoint = i
		}
		steps = append(steps, sd.Step())
	}

	return New(steps,
		WithName(d.Name),
		WithCheckpoint(checkpoint),
		WithReprompts(d.Gate.Reprompts...),
		WithConfirmation(d.Gate.Confirmation, d.Gate.FollowUp),
		WithPaymentReminders(d.PaymentReminders...),
	)
}

// Parse decodes a YAML or JSON script document.
func Parse(data []byte) (*Script, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	var doc Document
	if err := DecodeMap(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidScript, err)
	}
	return doc.Build()
}

// LoadFile reads and parses a script document from disk.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ToDocument converts a Script back into its serialized form.
func ToDocument(s *Script) Document {
	doc := Document{
		Name: s.name,
		Gate: GateDocument{
			Reprompts:    s.Reprompts(),
			Confirmation: s.confirmation,
			FollowUp:     s.followUp,
		},
		PaymentReminders: s.PaymentReminders(),
		Steps:            make([]StepDocument, 0, len(s.steps)),
	}
	for i, step := range s.steps {
		doc.Steps = append(doc.Steps, StepDocument{
			Action:      string(step.Action),
			Kind:        string(step.Kind),
			Text:        step.Text,
			Media:       step.MediaRef,
			Duration:    step.Duration,
			TypingDelay: step.TypingDelay,
			Checkpoint:  s.IsCheckpoint(i),
		})
	}
	return doc
}

// Marshal encodes a Script as YAML.
func Marshal(s *Script) ([]byte, error) {
	return yaml.Marshal(ToDocument(s))
}
