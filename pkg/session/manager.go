package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
)

// Lock keys, one per persisted record.
const (
	LockStep       = "step_index"
	LockTranscript = "transcript"
	LockPayment    = "payment_data"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates record access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
// Manager itself satisfies ports.Store.
type Manager struct {
	store ports.Store

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

var _ ports.Store = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes a function while holding the lock for the record key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.Store {
	return m.store
}

// StepIndex returns the persisted step index.
func (m *Manager) StepIndex(ctx context.Context) int {
	return m.store.StepIndex(ctx)
}

// SetStepIndex persists the step index.
func (m *Manager) SetStepIndex(ctx context.Context, n int) error {
	return m.WithLock(ctx, LockStep, func(ctx context.Context) error {
		return m.store.SetStepIndex(ctx, n)
	})
}

// ResetStepIndex sets the step index back to 0.
func (m *Manager) ResetStepIndex(ctx context.Context) error {
	return m.SetStepIndex(ctx, 0)
}

// AdvanceStep increments the persisted step index and returns the new value.
func (m *Manager) AdvanceStep(ctx context.Context) (int, error) {
	var next int
	err := m.WithLock(ctx, LockStep, func(ctx context.Context) error {
		next = m.store.StepIndex(ctx) + 1
		return m.store.SetStepIndex(ctx, next)
	})
	return next, err
}

// Transcript returns the persisted transcript.
func (m *Manager) Transcript(ctx context.Context) []domain.Message {
	return m.store.Transcript(ctx)
}

// SetTranscript replaces the transcript.
func (m *Manager) SetTranscript(ctx context.Context, messages []domain.Message) error {
	return m.WithLock(ctx, LockTranscript, func(ctx context.Context) error {
		return m.store.SetTranscript(ctx, messages)
	})
}

// ClearTranscript removes the transcript.
func (m *Manager) ClearTranscript(ctx context.Context) error {
	return m.WithLock(ctx, LockTranscript, func(ctx context.Context) error {
		return m.store.ClearTranscript(ctx)
	})
}

// UpdateTranscript applies fn to the current transcript and persists the result.
// Returning an error from fn aborts the update.
func (m *Manager) UpdateTranscript(ctx context.Context, fn func([]domain.Message) ([]domain.Message, error)) error {
	return m.WithLock(ctx, LockTranscript, func(ctx context.Context) error {
		next, err := fn(m.store.Transcript(ctx))
		if err != nil {
			return err
		}
		return m.store.SetTranscript(ctx, next)
	})
}

// PaymentData returns the stored payment, nil if absent.
func (m *Manager) PaymentData(ctx context.Context) *domain.PaymentData {
	return m.store.PaymentData(ctx)
}

// SetPaymentData persists payment data.
func (m *Manager) SetPaymentData(ctx context.Context, data domain.PaymentData) error {
	return m.WithLock(ctx, LockPayment, func(ctx context.Context) error {
		return m.store.SetPaymentData(ctx, data)
	})
}

// ClearPaymentData removes the payment data.
func (m *Manager) ClearPaymentData(ctx context.Context) error {
	return m.WithLock(ctx, LockPayment, func(ctx context.Context) error {
		return m.store.ClearPaymentData(ctx)
	})
}

// Reset clears every record. All records are attempted even if one fails.
func (m *Manager) Reset(ctx context.Context) error {
	var errs []error
	if err := m.ResetStepIndex(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.ClearTranscript(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.ClearPaymentData(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}
