/*
Package ports defines the driven ports (interfaces) of the drip sequencer.

These interfaces decouple the engine from persistence, transcript delivery and
payment providers, so the same engine runs against an in-memory store in tests
and a Redis or SQLite store in production.

# Key Interfaces

  - Store: persists the step index, the transcript and the payment data.
  - MessageSink: appends bot messages to the transcript.
  - PaymentClient: creates and checks payments for the legacy payment flow.
  - DistributedLocker: serializes transcript writes across replicas.
*/
package ports
