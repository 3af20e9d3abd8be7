package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the drip banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"      _      _       ", "#22d3ee"},
		{"   __| |_ __(_)_ __  ", "#38bdf8"},
		{"  / _` | '__| | '_ \\ ", "#60a5fa"},
		{" | (_| | |  | | |_) |", "#818cf8"},
		{"  \\__,_|_|  |_| .__/ ", "#a78bfa"},
		{"              |_|    ", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
