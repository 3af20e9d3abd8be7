package tui

import (
	"github.com/muesli/termenv"
)

// Style colors console output for a terminal profile.
// It satisfies drip.Styler.
type Style struct {
	profile termenv.Profile
}

// NewStyle detects the color profile of stdout.
func NewStyle() Style {
	return Style{profile: termenv.ColorProfile()}
}

// NewStyleWithProfile uses an explicit color profile.
func NewStyleWithProfile(p termenv.Profile) Style {
	return Style{profile: p}
}

// Bot styles a bot message.
func (s Style) Bot(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#34d399")).String()
}

// Status styles a presence label such as "typing".
func (s Style) Status(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#9ca3af")).Italic().String()
}

// System styles console notices.
func (s Style) System(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#fbbf24")).Bold().String()
}
