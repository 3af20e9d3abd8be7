package drip

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/drip/pkg/domain"
)

// Runner plays a Session as a console chat: lines read from Input are lead
// replies, bot messages are written to Output.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
	Style    Styler

	mu sync.Mutex
}

// ContentRenderer transforms bot text before it is written (markdown to ANSI).
type ContentRenderer func(string) (string, error)

// Styler decorates console output. The zero Runner prints plain text.
type Styler interface {
	Bot(s string) string
	Status(s string) string
	System(s string) string
}

// CommandType identifies a console command.
type CommandType int

const (
	CommandText CommandType = iota
	CommandMedia
	CommandPay
	CommandReset
	CommandStatus
	CommandQuit
	CommandHelp
	CommandRetry
)

// Command is one parsed console line.
type Command struct {
	Type   CommandType
	Reply  domain.Inbound
	Amount float64
}

const consoleHelp = `Type a message to reply. Commands:
  /image <ref>            reply with an image
  /audio <ref> [seconds]  reply with an audio note
  /video <ref> [seconds]  reply with a video
  /pay <amount>           choose a payment amount
  /status                 show the engine state
  /retry                  retry the current step after an error
  /reset                  restart the conversation
  /quit                   leave`

// ParseCommand parses a console line. Lines not starting with '/' are text replies.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Type: CommandText, Reply: domain.Inbound{Kind: domain.KindText, Content: line}}, nil
	}

	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	switch name {
	case "/quit", "/exit":
		return Command{Type: CommandQuit}, nil
	case "/reset":
		return Command{Type: CommandReset}, nil
	case "/status":
		return Command{Type: CommandStatus}, nil
	case "/help":
		return Command{Type: CommandHelp}, nil
	case "/retry":
		return Command{Type: CommandRetry}, nil
	case "/pay":
		if len(args) != 1 {
			return Command{}, errors.New("usage: /pay <amount>")
		}
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount <= 0 {
			return Command{}, fmt.Errorf("invalid amount %q", args[0])
		}
		return Command{Type: CommandPay, Amount: amount}, nil
	case "/image", "/audio", "/video":
		kind := domain.ContentKind(strings.TrimPrefix(name, "/"))
		if len(args) == 0 {
			return Command{}, fmt.Errorf("usage: %s <ref>", name)
		}
		in := domain.Inbound{Kind: kind, MediaRef: args[0]}
		if len(args) > 1 && kind != domain.KindImage {
			secs, err := strconv.ParseFloat(args[1], 64)
			if err != nil || secs < 0 {
				return Command{}, fmt.Errorf("invalid duration %q", args[1])
			}
			in.Duration = time.Duration(secs * float64(time.Second))
		}
		return Command{Type: CommandMedia, Reply: in}, nil
	}
	return Command{}, fmt.Errorf("unknown command %s (try /help)", name)
}

// Hooks returns lifecycle hooks that print bot messages and, unless
// headless, presence changes. Pass them to New via WithLifecycleHooks.
func (r *Runner) Hooks() domain.LifecycleHooks {
	hooks := domain.LifecycleHooks{
		OnMessage: func(_ context.Context, m domain.Message) {
			if m.Originator == domain.FromBot {
				r.printMessage(m)
			}
		},
		OnShowPaymentButtons: func(context.Context) {
			r.printSystem("Choose an amount with /pay <amount>")
		},
	}
	if !r.Headless {
		hooks.OnStatusChange = func(_ context.Context, label domain.StatusLabel) {
			if label == domain.LabelOnline {
				return
			}
			r.println(r.style().Status("... " + string(label)))
		}
	}
	return hooks
}

// Run starts the session and feeds console input to it until /quit, end of
// input or cancellation of ctx.
func (r *Runner) Run(ctx context.Context, sess *Session) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.Input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if !r.Headless {
		r.printSystem(fmt.Sprintf("Playing %q (%d steps). /help lists commands.", sess.Script().Name(), sess.Script().Len()))
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			quit, err := r.dispatch(ctx, sess, line)
			if err != nil {
				r.printSystem(err.Error())
			}
			if quit {
				return nil
			}
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, sess *Session, line string) (bool, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return false, err
	}
	switch cmd.Type {
	case CommandQuit:
		return true, nil
	case CommandHelp:
		r.println(consoleHelp)
	case CommandStatus:
		st := sess.Status(ctx)
		r.printSystem(fmt.Sprintf("state=%s step=%d/%d retries=%d", st.State, st.StepIndex, st.Steps, st.Retries))
	case CommandReset:
		if err := sess.Reset(ctx); err != nil {
			return false, err
		}
		r.printSystem("Conversation restarted.")
	case CommandRetry:
		if err := sess.Process(ctx); err != nil {
			return false, err
		}
		st := sess.Status(ctx)
		r.printSystem(fmt.Sprintf("Retried, state=%s step=%d/%d", st.State, st.StepIndex, st.Steps))
	case CommandPay:
		return false, sess.SelectPaymentAmount(ctx, cmd.Amount)
	default:
		_, err := sess.Reply(ctx, cmd.Reply)
		return false, err
	}
	return false, nil
}

func (r *Runner) printMessage(m domain.Message) {
	var body string
	switch {
	case m.Pix != nil:
		body = "PIX copy-and-paste code: " + m.Pix.QRText
	case m.Kind == domain.KindText:
		body = m.Content
		if r.Renderer != nil {
			if rendered, err := r.Renderer(body); err == nil {
				body = strings.TrimSpace(rendered)
			}
		}
	case m.Kind == domain.KindAudio:
		body = fmt.Sprintf("[audio %s] %s", m.Duration.Round(time.Second), m.MediaRef)
	default:
		body = fmt.Sprintf("[%s] %s", m.Kind, m.MediaRef)
		if m.Content != "" {
			body += "\n" + m.Content
		}
	}
	r.println(r.style().Bot(body))
}

func (r *Runner) printSystem(s string) {
	r.println(r.style().System(">>> " + s))
}

func (r *Runner) println(s string) {
	if r.Output == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.Output, s)
}

func (r *Runner) style() Styler {
	if r.Style == nil {
		return plainStyle{}
	}
	return r.Style
}

type plainStyle struct{}

func (plainStyle) Bot(s string) string    { return s }
func (plainStyle) Status(s string) string { return s }
func (plainStyle) System(s string) string { return s }
