package domain

import "time"

// ActionType identifies what a Step does when the engine reaches it.
type ActionType string

const (
	// ActionSendMessage emits one bot message after a simulated typing delay.
	ActionSendMessage ActionType = "send_message"
	// ActionWaitForReply suspends the engine until the lead replies.
	ActionWaitForReply ActionType = "wait_for_reply"
	// ActionWaitForPayment suspends the engine until a payment check succeeds.
	ActionWaitForPayment ActionType = "wait_for_payment"
	// ActionShowPaymentButtons asks the host to present payment amount buttons.
	ActionShowPaymentButtons ActionType = "show_payment_buttons"
	// ActionShowPixPayment asks the host to present the generated PIX payment.
	ActionShowPixPayment ActionType = "show_pix_payment"
)

// IsPayment reports whether the action belongs to the legacy payment flow.
func (a ActionType) IsPayment() bool {
	switch a {
	case ActionWaitForPayment, ActionShowPaymentButtons, ActionShowPixPayment:
		return true
	}
	return false
}

// Valid reports whether a is a known action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionSendMessage, ActionWaitForReply, ActionWaitForPayment,
		ActionShowPaymentButtons, ActionShowPixPayment:
		return true
	}
	return false
}

// ContentKind is the media kind of a message.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindAudio ContentKind = "audio"
	KindVideo ContentKind = "video"
)

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo:
		return true
	}
	return false
}

// IsMedia reports whether k carries a media reference instead of plain text.
func (k ContentKind) IsMedia() bool {
	return k == KindImage || k == KindAudio || k == KindVideo
}

// Step is one immutable unit of a script.
// Only SendMessage steps use the message fields.
type Step struct {
	Action ActionType `json:"action" yaml:"action"`

	Kind ContentKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Text is the message body for text steps and the optional caption for
	// image and video steps.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// MediaRef points at the image, audio or video payload.
	MediaRef string `json:"media_ref,omitempty" yaml:"media_ref,omitempty"`

	// Duration is the audio clip length. Zero means DefaultAudioDuration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// TypingDelay is the pause before the typing indicator starts.
	// Zero means DefaultTypingDelay.
	TypingDelay time.Duration `json:"typing_delay,omitempty" yaml:"typing_delay,omitempty"`
}

// Suspends reports whether the step halts the engine until external input.
func (s Step) Suspends() bool {
	return s.Action == ActionWaitForReply || s.Action == ActionWaitForPayment
}

// SendText builds a text message step.
func SendText(text string, typingDelay time.Duration) Step {
	return Step{Action: ActionSendMessage, Kind: KindText, Text: text, TypingDelay: typingDelay}
}

// SendAudio builds an audio message step.
func SendAudio(ref string, duration, typingDelay time.Duration) Step {
	return Step{Action: ActionSendMessage, Kind: KindAudio, MediaRef: ref, Duration: duration, TypingDelay: typingDelay}
}

// SendImage builds an image message step with an optional caption.
func SendImage(ref, caption string, typingDelay time.Duration) Step {
	return Step{Action: ActionSendMessage, Kind: KindImage, MediaRef: ref, Text: caption, TypingDelay: typingDelay}
}

// SendVideo builds a video message step with an optional caption.
func SendVideo(ref, caption string, typingDelay time.Duration) Step {
	return Step{Action: ActionSendMessage, Kind: KindVideo, MediaRef: ref, Text: caption, TypingDelay: typingDelay}
}

// WaitForReply builds a reply pause point.
func WaitForReply() Step {
	return Step{Action: ActionWaitForReply}
}
