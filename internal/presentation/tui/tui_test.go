package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyle_AsciiProfileIsPlain(t *testing.T) {
	s := NewStyleWithProfile(termenv.Ascii)

	assert.Equal(t, "hello", s.Bot("hello"))
	assert.Equal(t, "... typing", s.Status("... typing"))
}

func TestStyle_ANSIProfileColors(t *testing.T) {
	s := NewStyleWithProfile(termenv.ANSI256)

	out := s.System(">>> notice")
	assert.Contains(t, out, ">>> notice")
	assert.True(t, strings.HasPrefix(out, "\x1b["))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("**bold** text")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
}
