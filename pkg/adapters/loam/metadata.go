package loam

// RoleGate marks the document that carries gate settings instead of a step.
const RoleGate = "gate"

// StepMetadata is the frontmatter of a script document.
// Step documents use the step keys and the body as message text; the single
// gate document (role: gate) uses the gate keys.
type StepMetadata struct {
	Role  string `json:"role" mapstructure:"role"`
	Order int    `json:"order" mapstructure:"order"`

	// Step keys
	Action          string `json:"action" mapstructure:"action"`
	Kind            string `json:"kind" mapstructure:"kind"`
	Media           string `json:"media" mapstructure:"media"`
	DurationSeconds int    `json:"duration_seconds" mapstructure:"duration_seconds"`
	TypingDelayMs   int    `json:"typing_delay_ms" mapstructure:"typing_delay_ms"`
	Checkpoint      bool   `json:"checkpoint" mapstructure:"checkpoint"`

	// Gate keys
	Name             string   `json:"name" mapstructure:"name"`
	Reprompts        []string `json:"reprompts" mapstructure:"reprompts"`
	Confirmation     string   `json:"confirmation" mapstructure:"confirmation"`
	FollowUp         string   `json:"follow_up" mapstructure:"follow_up"`
	PaymentReminders []string `json:"payment_reminders" mapstructure:"payment_reminders"`
}
