// Package kv implements ports.Store on top of any byte-oriented key-value backend.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/pkg/domain"
)

// Record keys of the persisted schema.
const (
	KeyStepIndex  = "step_index"
	KeyTranscript = "transcript"
	KeyPayment    = "payment_data"
)

// ErrNotFound is returned by a Backend when a key is absent.
var ErrNotFound = errors.New("record not found")

// Backend is the minimal storage primitive a store adapter provides.
// Get returns ErrNotFound for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store implements ports.Store with JSON records over a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger reports unreadable records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store over the given backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// read loads a record. It reports false for absent or unreadable records and
// logs the latter.
func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Record unreadable, using default", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

// StepIndex returns the persisted step index, 0 if absent or corrupt.
func (s *Store) StepIndex(ctx context.Context) int {
	data, ok := s.read(ctx, KeyStepIndex)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		s.logger.Warn("Step index corrupt, restarting at 0", "value", string(data))
		return 0
	}
	return n
}

// SetStepIndex persists the step index as a decimal string.
func (s *Store) SetStepIndex(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("step index must be >= 0, got %d", n)
	}
	if err := s.backend.Put(ctx, KeyStepIndex, []byte(strconv.Itoa(n))); err != nil {
		return fmt.Errorf("failed to save step index: %w", err)
	}
	return nil
}

// ResetStepIndex stores 0.
func (s *Store) ResetStepIndex(ctx context.Context) error {
	return s.SetStepIndex(ctx, 0)
}

// Transcript returns the persisted transcript, empty if absent or corrupt.
func (s *Store) Transcript(ctx context.Context) []domain.Message {
	data, ok := s.read(ctx, KeyTranscript)
	if !ok {
		return []domain.Message{}
	}
	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		s.logger.Warn("Transcript corrupt, starting empty", "err", err)
		return []domain.Message{}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs
}

// SetTranscript replaces the transcript.
func (s *Store) SetTranscript(ctx context.Context, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := s.backend.Put(ctx, KeyTranscript, data); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// ClearTranscript removes the transcript record.
func (s *Store) ClearTranscript(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyTranscript); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

// PaymentData returns the stored payment, nil if absent or corrupt.
func (s *Store) PaymentData(ctx context.Context) *domain.PaymentData {
	data, ok := s.read(ctx, KeyPayment)
	if !ok {
		return nil
	}
	var p domain.PaymentData
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("Payment data corrupt, ignoring", "err", err)
		return nil
	}
	return &p
}

// SetPaymentData persists payment data.
func (s *Store) SetPaymentData(ctx context.Context, p domain.PaymentData) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payment data: %w", err)
	}
	if err := s.backend.Put(ctx, KeyPayment, data); err != nil {
		return fmt.Errorf("failed to save payment data: %w", err)
	}
	return nil
}

// ClearPaymentData removes the payment record.
func (s *Store) ClearPaymentData(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyPayment); err != nil {
		return fmt.Errorf("failed to clear payment data: %w", err)
	}
	return nil
}
