// Package sequencer implements the scripted conversation engine.
//
// The Engine walks a script.Script against the persisted step index, one step
// per invocation. Each invocation either suspends (reply or payment pause
// points), finishes, or completes the step and schedules its own continuation.
// Triggers that arrive while an invocation is in flight are dropped, not queued.
//
// Replies are routed through HandleReply, which implements the reply gate:
// a plain resume for ordinary pause points and proof-of-receipt validation at
// the script's checkpoint.
package sequencer
