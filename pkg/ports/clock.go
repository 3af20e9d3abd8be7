package ports

import (
	"context"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
// The engine takes it as a dependency so tests can run without wall-clock waits.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler runs deferred work, such as delivery-status updates and the
// settling delay before the next engine invocation.
type Scheduler interface {
	// After runs fn once d has elapsed.
	After(d time.Duration, fn func())
	// Stop cancels every pending callback. After is a no-op afterwards.
	Stop()
}
