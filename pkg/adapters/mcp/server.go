// Package mcp exposes a drip session as Model Context Protocol tools, so an
// agent can play the lead side of the conversation.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/internal/sequencer"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Session is the subset of *drip.Session exposed as tools.
type Session interface {
	Reply(ctx context.Context, in domain.Inbound) (domain.Message, error)
	SelectPaymentAmount(ctx context.Context, amount float64) error
	Transcript(ctx context.Context) []domain.Message
	Status(ctx context.Context) sequencer.Status
	Script() *script.Script
	Reset(ctx context.Context) error
	Process(ctx context.Context) error
}

// ReplyArgs are the arguments of send_reply.
type ReplyArgs struct {
	Content         string  `json:"content,omitempty"`
	Kind            string  `json:"kind,omitempty"`
	MediaRef        string  `json:"media_ref,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// PaymentArgs are the arguments of select_payment_amount.
type PaymentArgs struct {
	Amount float64 `json:"amount"`
}

// TranscriptArgs are the arguments of get_transcript.
type TranscriptArgs struct {
	Last int `json:"last,omitempty"`
}

// ReplyResponse is returned by send_reply.
type ReplyResponse struct {
	Message domain.Message   `json:"message" jsonschema_description:"The recorded lead message"`
	Status  sequencer.Status `json:"status" jsonschema_description:"Engine status after the reply gate ran"`
}

// TranscriptResponse is returned by get_transcript.
type TranscriptResponse struct {
	Messages []domain.Message `json:"messages" jsonschema_description:"Transcript entries, oldest first"`
}

// Server wraps a Session as an MCP server.
type Server struct {
	session   Session
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server for sess.
func NewServer(sess Session, version string, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		mcpServer: server.NewMCPServer("drip-mcp", version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the engine state and the current script position."),
		mcp.WithOutputSchema[sequencer.Status](),
	), mcp.NewStructuredToolHandler(s.handleStatus))

	s.mcpServer.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get the conversation transcript."),
		mcp.WithNumber("last", mcp.Description("Only return the last N messages (optional)")),
		mcp.WithOutputSchema[TranscriptResponse](),
	), mcp.NewStructuredToolHandler(s.handleTranscript))

	s.mcpServer.AddTool(mcp.NewTool("send_reply",
		mcp.WithDescription("Send a message as the lead. Media replies are proof of receipt at the checkpoint."),
		mcp.WithString("content", mcp.Description("Text content")),
		mcp.WithString("kind", mcp.Description("text, image, audio or video (default text)"), mcp.Enum("text", "image", "audio", "video")),
		mcp.WithString("media_ref", mcp.Description("Reference to the media file for non-text kinds")),
		mcp.WithNumber("duration_seconds", mcp.Description("Audio or video duration")),
		mcp.WithOutputSchema[ReplyResponse](),
	), mcp.NewStructuredToolHandler(s.handleReply))

	s.mcpServer.AddTool(mcp.NewTool("select_payment_amount",
		mcp.WithDescription("Choose a payment amount in the legacy payment flow."),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount to charge")),
		mcp.WithOutputSchema[sequencer.Status](),
	), mcp.NewStructuredToolHandler(s.handlePayment))

	s.mcpServer.AddTool(mcp.NewTool("retry_step",
		mcp.WithDescription("Retry the current step after a failure. Does nothing while the script is running or waiting for the lead."),
		mcp.WithOutputSchema[sequencer.Status](),
	), mcp.NewStructuredToolHandler(s.handleRetry))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Clear the conversation and restart the script."),
		mcp.WithOutputSchema[sequencer.Status](),
	), mcp.NewStructuredToolHandler(s.handleReset))
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (sequencer.Status, error) {
	return s.session.Status(ctx), nil
}

func (s *Server) handleTranscript(ctx context.Context, _ mcp.CallToolRequest, args TranscriptArgs) (TranscriptResponse, error) {
	msgs := s.session.Transcript(ctx)
	if args.Last > 0 && args.Last < len(msgs) {
		msgs = msgs[len(msgs)-args.Last:]
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return TranscriptResponse{Messages: msgs}, nil
}

func (s *Server) handleReply(ctx context.Context, _ mcp.CallToolRequest, args ReplyArgs) (ReplyResponse, error) {
	kind := domain.ContentKind(args.Kind)
	if kind != "" && !kind.Valid() {
		return ReplyResponse{}, fmt.Errorf("unknown kind %q", args.Kind)
	}
	if kind.IsMedia() && args.MediaRef == "" {
		return ReplyResponse{}, errors.New("media_ref is required for media replies")
	}

	msg, err := s.session.Reply(ctx, domain.Inbound{
		Kind:     kind,
		Content:  args.Content,
		MediaRef: args.MediaRef,
		Duration: time.Duration(args.DurationSeconds * float64(time.Second)),
	})
	if err != nil && msg.ID == "" {
		return ReplyResponse{}, fmt.Errorf("reply rejected: %w", err)
	}
	if err != nil {
		s.logger.Error("MCP reply: gate failed", "err", err)
	}
	return ReplyResponse{Message: msg, Status: s.session.Status(ctx)}, nil
}

func (s *Server) handlePayment(ctx context.Context, _ mcp.CallToolRequest, args PaymentArgs) (sequencer.Status, error) {
	if args.Amount <= 0 {
		return sequencer.Status{}, errors.New("amount must be positive")
	}
	if err := s.session.SelectPaymentAmount(ctx, args.Amount); err != nil {
		return sequencer.Status{}, fmt.Errorf("payment failed: %w", err)
	}
	return s.session.Status(ctx), nil
}

func (s *Server) handleRetry(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (sequencer.Status, error) {
	if err := s.session.Process(ctx); err != nil {
		return sequencer.Status{}, fmt.Errorf("retry failed: %w", err)
	}
	return s.session.Status(ctx), nil
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (sequencer.Status, error) {
	if err := s.session.Reset(ctx); err != nil {
		return sequencer.Status{}, fmt.Errorf("reset failed: %w", err)
	}
	return s.session.Status(ctx), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("drip://script", "Script being played",
		mcp.WithMIMEType("text/yaml"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := script.Marshal(s.session.Script())
		if err != nil {
			return nil, fmt.Errorf("failed to encode script: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "drip://script", MIMEType: "text/yaml", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource("drip://transcript", "Conversation transcript",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.session.Transcript(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to encode transcript: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "drip://transcript", MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
