/*
Package script holds the immutable, ordered list of steps a session plays out.

A Script is authored once (in Go with package dsl, as a YAML or JSON document,
or as a directory of markdown files via the loam adapter) and validated at load
time. After New returns, a Script never changes: the engine only reads it by
position.

Besides its steps, a Script carries the reply gate configuration: the index of
the proof-of-receipt checkpoint, the escalating re-prompts sent while the lead
answers with text, and the confirmation plus follow-up sent once media arrives.
*/
package script
