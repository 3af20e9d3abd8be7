package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/config"
	"github.com/aretw0/drip/internal/presentation/tui"
	"github.com/aretw0/drip/pkg/observability"
)

// RunOptions configures the console chat.
type RunOptions struct {
	Config   config.Config
	Version  string
	Fresh    bool
	Headless bool
	Input    io.Reader
	Output   io.Writer
}

// Run plays the configured script as a console chat on stdin/stdout.
func Run(opts RunOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	// Rich output only on a real terminal.
	if !opts.Headless && opts.Output == os.Stdout && !IsTerminal(os.Stdout) {
		opts.Headless = true
	}

	logger := NewLogger(opts.Config.Debug)
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Stop()

	r := &drip.Runner{
		Input:    opts.Input,
		Output:   opts.Output,
		Headless: opts.Headless,
	}
	if !opts.Headless {
		tui.PrintBanner(opts.Output, opts.Version)
		r.Renderer = tui.NewRenderer()
		r.Style = tui.NewStyle()
	}

	extra := []drip.Option{drip.WithLifecycleHooks(r.Hooks())}
	if opts.Config.Debug {
		extra = append(extra, drip.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	sess, res, err := NewSession(sigCtx, opts.Config, logger, extra...)
	if err != nil {
		return fmt.Errorf("error initializing session: %w", err)
	}
	defer res.Close()
	defer sess.Close()

	if opts.Fresh {
		if err := sess.Reset(sigCtx); err != nil {
			return err
		}
	}

	runErr := r.Run(sigCtx, sess)
	if sigCtx.Signal() != nil {
		fmt.Fprintln(opts.Output)
		printSystemMessage(opts.Output, "Interrupted at step %d. Progress is saved.", sess.Status(context.Background()).StepIndex)
	}
	return handleExecutionError(runErr)
}
