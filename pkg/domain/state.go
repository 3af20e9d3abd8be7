package domain

// EngineState is the transient phase of the sequencer.
// It replaces independent processing/waiting flags with one value, so the
// single-flight rule is a property of the transition table.
type EngineState string

const (
	StateIdle              EngineState = "idle"
	StateProcessing        EngineState = "processing"
	StateWaitingForReply   EngineState = "waiting_for_reply"
	StateWaitingForPayment EngineState = "waiting_for_payment"
	StateFinished          EngineState = "finished"
)

var legalTransitions = map[EngineState][]EngineState{
	StateIdle:              {StateProcessing},
	StateProcessing:        {StateIdle, StateWaitingForReply, StateWaitingForPayment, StateFinished},
	StateWaitingForReply:   {StateIdle},
	StateWaitingForPayment: {StateIdle},
	StateFinished:          {},
}

// CanTransition reports whether the engine may move from s to next.
// Reset is modeled outside the table: it forces StateIdle from any state.
func (s EngineState) CanTransition(next EngineState) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Suspended reports whether the engine is waiting for external input.
func (s EngineState) Suspended() bool {
	return s == StateWaitingForReply || s == StateWaitingForPayment
}

// StatusLabel is the presence label shown next to the bot's name.
type StatusLabel string

const (
	LabelOnline    StatusLabel = "online"
	LabelTyping    StatusLabel = "typing"
	LabelRecording StatusLabel = "recording"
)

// LabelFor returns the activity label used while composing a message of kind k.
func LabelFor(k ContentKind) StatusLabel {
	if k == KindAudio {
		return LabelRecording
	}
	return LabelTyping
}
