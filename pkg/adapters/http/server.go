// Package http exposes a drip session over a small JSON API built on chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/internal/sequencer"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
	"github.com/aretw0/drip/pkg/transcript"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Session is the subset of *drip.Session served over HTTP.
type Session interface {
	Reply(ctx context.Context, in domain.Inbound) (domain.Message, error)
	SelectPaymentAmount(ctx context.Context, amount float64) error
	Transcript(ctx context.Context) []domain.Message
	Status(ctx context.Context) sequencer.Status
	Script() *script.Script
	Reset(ctx context.Context) error
	Process(ctx context.Context) error
}

// Server routes HTTP requests to a Session.
type Server struct {
	Session Session
	Streams *StreamManager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager, typically one already fed by the
// session's OnMessage hook.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// replyRequest is the body of POST /reply.
type replyRequest struct {
	Kind            domain.ContentKind `json:"kind"`
	Content         string             `json:"content"`
	MediaRef        string             `json:"media_ref"`
	DurationSeconds float64            `json:"duration_seconds"`
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler for sess.
func NewHandler(sess Session, opts ...Option) http.Handler {
	s := &Server{Session: sess, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/status", s.GetStatus)
	r.Get("/transcript", s.GetTranscript)
	r.Get("/script", s.GetScript)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/reply", s.PostReply)
	r.Post("/payment", s.PostPayment)
	r.Post("/reset", s.PostReset)
	r.Post("/process", s.PostProcess)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Status(r.Context()))
}

// GetTranscript handles GET /transcript.
func (s *Server) GetTranscript(w http.ResponseWriter, r *http.Request) {
	msgs := s.Session.Transcript(r.Context())
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

// GetScript handles GET /script.
func (s *Server) GetScript(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, script.ToDocument(s.Session.Script()))
}

// PostReply handles POST /reply.
func (s *Server) PostReply(w http.ResponseWriter, r *http.Request) {
	var body replyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("Reply: invalid request body", "err", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if body.Kind != "" && !body.Kind.Valid() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown kind %q", body.Kind)})
		return
	}

	msg, err := s.Session.Reply(r.Context(), domain.Inbound{
		Kind:     body.Kind,
		Content:  body.Content,
		MediaRef: body.MediaRef,
		Duration: time.Duration(body.DurationSeconds * float64(time.Second)),
	})
	if err != nil && msg.ID == "" {
		s.writeError(w, err)
		return
	}
	if err != nil {
		// The message is recorded; only the gate failed.
		s.logger.Error("Reply: gate failed", "err", err)
	}
	s.writeJSON(w, http.StatusAccepted, msg)
}

// PostPayment handles POST /payment.
func (s *Server) PostPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a positive number"})
		return
	}
	if err := s.Session.SelectPaymentAmount(r.Context(), body.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.Session.Status(r.Context()))
}

// PostReset handles POST /reset.
func (s *Server) PostReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Session.Status(r.Context()))
}

// PostProcess handles POST /process. It retries the current step, the way
// to unstick a session after a failed step. A session that is busy or
// suspended is left alone.
func (s *Server) PostProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Process(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.Session.Status(r.Context()))
}

// SubscribeEvents handles GET /events, a server-sent stream of transcript
// messages.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, transcript.ErrInputTooLarge), errors.Is(err, transcript.ErrInvalidUTF8):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentsDisabled), errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrNotInitialized):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrClosed):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// StreamManager fans transcript messages out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. The returned func unregisters it.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber. Slow subscribers lose the message.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message")
		}
	}
}

// OnMessage is a lifecycle hook that broadcasts every recorded message as JSON.
func (sm *StreamManager) OnMessage(_ context.Context, m domain.Message) {
	data, err := json.Marshal(m)
	if err != nil {
		sm.logger.Error("SSE: message encode failed", "err", err)
		return
	}
	sm.Broadcast(string(data))
}
