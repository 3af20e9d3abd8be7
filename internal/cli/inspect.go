package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/drip/internal/config"
	"github.com/aretw0/drip/internal/presentation/graph"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
)

// SessionReport is the persisted view of a session, read without playing it.
type SessionReport struct {
	StepIndex   int                 `json:"step_index"`
	Steps       int                 `json:"steps"`
	Finished    bool                `json:"finished"`
	Transcript  []domain.Message    `json:"transcript"`
	PaymentData *domain.PaymentData `json:"payment_data,omitempty"`
}

// Inspect writes the persisted session as JSON, or as a readable summary.
func Inspect(ctx context.Context, cfg config.Config, w io.Writer, asJSON bool) error {
	s, err := LoadScript(ctx, cfg.Script.Path)
	if err != nil {
		return err
	}
	res, err := OpenStore(ctx, cfg, NewLogger(cfg.Debug))
	if err != nil {
		return err
	}
	defer res.Close()

	report := SessionReport{
		StepIndex:   res.Store.StepIndex(ctx),
		Steps:       s.Len(),
		Transcript:  res.Store.Transcript(ctx),
		PaymentData: res.Store.PaymentData(ctx),
	}
	report.Finished = report.StepIndex >= report.Steps
	if report.Transcript == nil {
		report.Transcript = []domain.Message{}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "Step: %d/%d\n", report.StepIndex, report.Steps)
	if step, err := s.Get(report.StepIndex); err == nil {
		fmt.Fprintf(w, "Next: %s\n", describeStep(step))
	} else {
		fmt.Fprintln(w, "Next: (finished)")
	}
	fmt.Fprintf(w, "Messages: %d\n", len(report.Transcript))
	for _, m := range report.Transcript {
		fmt.Fprintf(w, "  [%s] %-4s %s\n", m.CreatedAt.Format("15:04:05"), m.Originator, describeMessage(m))
	}
	return nil
}

// ResetStore clears the persisted session without starting it.
func ResetStore(ctx context.Context, cfg config.Config) error {
	res, err := OpenStore(ctx, cfg, NewLogger(cfg.Debug))
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.Store.ResetStepIndex(ctx); err != nil {
		return err
	}
	if err := res.Store.ClearTranscript(ctx); err != nil {
		return err
	}
	return res.Store.ClearPaymentData(ctx)
}

// ShowScript writes the configured script as YAML.
func ShowScript(ctx context.Context, path string, w io.Writer) error {
	s, err := LoadScript(ctx, path)
	if err != nil {
		return err
	}
	data, err := script.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ValidateScript loads the script and reports a short summary.
func ValidateScript(ctx context.Context, path string, w io.Writer) error {
	s, err := LoadScript(ctx, path)
	if err != nil {
		return err
	}
	checkpoint := "none"
	if i, ok := s.Checkpoint(); ok {
		checkpoint = fmt.Sprintf("step %d", i)
	}
	fmt.Fprintf(w, "Script %q is valid: %d steps, checkpoint %s, payments %t\n", s.Name(), s.Len(), checkpoint, s.UsesPayments())
	return nil
}

// GraphScript writes the script as a Mermaid flowchart. With withSession the
// persisted step index of cfg's store is overlaid.
func GraphScript(ctx context.Context, cfg config.Config, path string, w io.Writer, withSession bool) error {
	s, err := LoadScript(ctx, path)
	if err != nil {
		return err
	}

	var overlay *graph.Overlay
	if withSession {
		res, err := OpenStore(ctx, cfg, NewLogger(cfg.Debug))
		if err != nil {
			return err
		}
		defer res.Close()

		idx := res.Store.StepIndex(ctx)
		overlay = &graph.Overlay{Current: idx, Finished: idx >= s.Len()}
	}

	_, err = io.WriteString(w, graph.GenerateMermaid(s, overlay))
	return err
}

func describeStep(step domain.Step) string {
	if step.Action == domain.ActionSendMessage {
		return fmt.Sprintf("%s %s", step.Action, step.Kind)
	}
	return string(step.Action)
}

func describeMessage(m domain.Message) string {
	switch {
	case m.Pix != nil:
		return "(pix) " + m.Pix.QRText
	case m.Kind == domain.KindText:
		return m.Content
	default:
		return fmt.Sprintf("(%s) %s", m.Kind, m.MediaRef)
	}
}
