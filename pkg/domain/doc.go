/*
Package domain defines the core types of a scripted conversation.

A Script is an ordered list of Steps. Each Step is one authored unit: a message
for the bot to send, or a pause point that waits for the lead (the human
participant) to reply. Messages accumulate in a Transcript. The engine state
machine (EngineState) is transient and never persisted: only the step index,
the transcript and the optional payment data survive restarts.
*/
package domain
