package domain

import "errors"

// ErrStepOutOfRange is returned when a script index has no step.
var ErrStepOutOfRange = errors.New("step index out of range")

// ErrInvalidScript is returned when a script fails validation at load time.
var ErrInvalidScript = errors.New("invalid script")

// ErrNotInitialized is returned when the engine is triggered before the host
// signalled that the transcript is loaded.
var ErrNotInitialized = errors.New("engine not initialized")

// ErrPaymentsDisabled is returned by payment operations when the payment flow
// is not enabled.
var ErrPaymentsDisabled = errors.New("payments disabled")

// ErrPaymentNotFound is returned when a payment check runs without stored payment data.
var ErrPaymentNotFound = errors.New("payment data not found")

// ErrClosed is returned when an operation reaches a session that was closed.
var ErrClosed = errors.New("session closed")
