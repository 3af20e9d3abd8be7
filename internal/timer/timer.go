// Package timer provides the wall-clock and manual implementations of the
// engine's sleep and scheduling dependencies.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/drip/pkg/ports"
)

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scaled multiplies every duration passed to sleep by factor.
// A factor of 0 turns every pause into an immediate return.
func Scaled(sleep ports.SleepFunc, factor float64) ports.SleepFunc {
	if factor == 1 {
		return sleep
	}
	return func(ctx context.Context, d time.Duration) error {
		return sleep(ctx, scale(d, factor))
	}
}

func scale(d time.Duration, factor float64) time.Duration {
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(d) * factor)
}

// Scheduler runs callbacks on time.AfterFunc timers and cancels them on Stop.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
	factor  float64
}

var _ ports.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a wall-clock scheduler. factor scales every delay.
func NewScheduler(factor float64) *Scheduler {
	return &Scheduler{
		timers: make(map[*time.Timer]struct{}),
		factor: factor,
	}
}

// After implements ports.Scheduler.
func (s *Scheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(scale(d, s.factor), func() {
		s.mu.Lock()
		_, pending := s.timers[t]
		delete(s.timers, t)
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
	s.timers[t] = struct{}{}
}

// Pending returns the number of callbacks that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop implements ports.Scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
		delete(s.timers, t)
	}
}
