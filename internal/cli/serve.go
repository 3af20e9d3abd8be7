package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/config"
	httpadapter "github.com/aretw0/drip/pkg/adapters/http"
	mcpadapter "github.com/aretw0/drip/pkg/adapters/mcp"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Serve exposes the session over HTTP until SIGINT/SIGTERM.
func Serve(cfg config.Config) error {
	logger := NewLogger(cfg.Debug)
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Stop()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	streams := httpadapter.NewStreamManager(logger)

	sess, res, err := NewSession(sigCtx, cfg, logger,
		drip.WithLifecycleHooks(metrics.Hooks()),
		drip.WithLifecycleHooks(observability.LogHooks(logger)),
		drip.WithLifecycleHooks(domain.LifecycleHooks{OnMessage: streams.OnMessage}),
	)
	if err != nil {
		return fmt.Errorf("error initializing session: %w", err)
	}
	defer res.Close()
	defer sess.Close()

	if err := sess.Start(sigCtx); err != nil {
		return err
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: httpadapter.NewHandler(sess,
			httpadapter.WithLogger(logger),
			httpadapter.WithStreams(streams),
			httpadapter.WithMetrics(metrics.Handler()),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// ServeMCP exposes the session as MCP tools over stdio, or over SSE when port > 0.
func ServeMCP(cfg config.Config, version string, port int) error {
	logger := NewLogger(cfg.Debug)
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Stop()

	sess, res, err := NewSession(sigCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing session: %w", err)
	}
	defer res.Close()
	defer sess.Close()

	if err := sess.Start(sigCtx); err != nil {
		return err
	}

	server := mcpadapter.NewServer(sess, version, mcpadapter.WithLogger(logger))
	if port > 0 {
		return server.ServeSSE(sigCtx, port)
	}
	return server.ServeStdio()
}
