package timer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/drip/pkg/ports"
)

// Manual is a deterministic scheduler and sleeper driven by the caller.
// Sleeps return immediately and advance the virtual clock; scheduled callbacks
// run only when Advance or Drain is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []task
	sleeps  []time.Duration
	stopped bool
}

type task struct {
	at  time.Duration
	seq int
	fn  func()
}

var _ ports.Scheduler = (*Manual)(nil)

// NewManual creates a manual clock at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Sleep records d and advances the virtual clock without running callbacks.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	m.now += d
	m.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns every duration passed to Sleep, in order.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

// Elapsed returns the virtual time.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After implements ports.Scheduler.
func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.seq++
	m.pending = append(m.pending, task{at: m.now + d, seq: m.seq, fn: fn})
}

// Stop implements ports.Scheduler.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.pending = nil
}

// Pending returns the number of callbacks waiting to run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the virtual clock forward by d and runs every callback due,
// including callbacks scheduled by those callbacks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	m.runUntil(target, false)
}

// Drain runs callbacks in due order until none remain.
func (m *Manual) Drain() {
	m.runUntil(0, true)
}

func (m *Manual) runUntil(target time.Duration, all bool) {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			if !all && m.now < target {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		sort.Slice(m.pending, func(i, j int) bool {
			if m.pending[i].at == m.pending[j].at {
				return m.pending[i].seq < m.pending[j].seq
			}
			return m.pending[i].at < m.pending[j].at
		})
		next := m.pending[0]
		if !all && next.at > target {
			if m.now < target {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		m.pending = m.pending[1:]
		if next.at > m.now {
			m.now = next.at
		}
		m.mu.Unlock()

		next.fn()
	}
}
