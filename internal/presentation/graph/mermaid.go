// Package graph renders a script as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
)

// Overlay marks session progress on the chart.
type Overlay struct {
	// Current is the index of the next step to run. Steps before it are
	// drawn as visited.
	Current int
	// Finished marks every step visited and none current.
	Finished bool
}

const labelLimit = 32

// GenerateMermaid produces a Mermaid flowchart for s.
// Shapes follow the step action:
// - Pause (wait_for_reply): [/Parallelogram/]
// - Checkpoint: {Rhombus}, with a reprompt loop
// - Payment steps: [[Subroutine]]
// - Messages: [Rectangle]
func GenerateMermaid(s *script.Script, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((start))\n")

	prev := "start"
	for i, step := range s.Steps() {
		id := stepID(i)
		opener, closer := "[", "]"

		switch {
		case s.IsCheckpoint(i):
			opener, closer = "{", "}"
		case step.Action == domain.ActionWaitForReply:
			opener, closer = "[/", "/]"
		case step.Action.IsPayment():
			opener, closer = "[[", "]]"
		}

		fmt.Fprintf(&sb, "    %s%s\"%d. %s\"%s\n", id, opener, i, label(step), closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)

		if s.IsCheckpoint(i) {
			fmt.Fprintf(&sb, "    %s -. \"text: reprompt\" .-> %s\n", id, id)
		}
		if step.Action == domain.ActionWaitForPayment {
			fmt.Fprintf(&sb, "    %s -. \"unpaid: remind\" .-> %s\n", id, id)
		}
		prev = id
	}
	sb.WriteString("    done((done))\n")
	fmt.Fprintf(&sb, "    %s --> done\n", prev)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := overlay.Current
		if overlay.Finished || visited > s.Len() {
			visited = s.Len()
		}
		for i := 0; i < visited; i++ {
			fmt.Fprintf(&sb, "    class %s visited;\n", stepID(i))
		}
		switch {
		case overlay.Finished || overlay.Current >= s.Len():
			sb.WriteString("    class done current;\n")
		case overlay.Current >= 0:
			fmt.Fprintf(&sb, "    class %s current;\n", stepID(overlay.Current))
		}
	}

	return sb.String()
}

func stepID(i int) string {
	return fmt.Sprintf("s%d", i)
}

func label(step domain.Step) string {
	if step.Action != domain.ActionSendMessage {
		return string(step.Action)
	}
	text := step.Text
	if step.Kind.IsMedia() {
		text = fmt.Sprintf("%s %s", step.Kind, step.MediaRef)
	}
	return sanitizeLabel(text)
}

func sanitizeLabel(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "\"", "'")
	if r := []rune(text); len(r) > labelLimit {
		text = string(r[:labelLimit-3]) + "..."
	}
	return text
}
