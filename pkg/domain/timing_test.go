package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTextTypingDelay(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"", 800 * time.Millisecond},
		{"hi", 800 * time.Millisecond},
		{strings.Repeat("a", 16), 800 * time.Millisecond},
		{strings.Repeat("a", 17), 850 * time.Millisecond},
		{strings.Repeat("a", 100), 5 * time.Second},
		// Surrogate pairs count twice.
		{"👋", 800 * time.Millisecond},
		{strings.Repeat("👋", 10), time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TextTypingDelay(tt.text), "text %q", tt.text)
	}
}

func TestTextLength(t *testing.T) {
	assert.Equal(t, 5, TextLength("hello"))
	assert.Equal(t, 2, TextLength("👋"))
	assert.Equal(t, 4, TextLength("olá!"))
}

func TestComposeDelay(t *testing.T) {
	assert.Equal(t, 800*time.Millisecond, ComposeDelay(KindText, "hey", 0))
	assert.Equal(t, 12*time.Second, ComposeDelay(KindAudio, "", 12*time.Second))
	assert.Equal(t, DefaultAudioDuration, ComposeDelay(KindAudio, "", 0))
	assert.Equal(t, MediaDelay, ComposeDelay(KindImage, strings.Repeat("x", 500), 0))
	assert.Equal(t, MediaDelay, ComposeDelay(KindVideo, "", 0))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, LabelRecording, LabelFor(KindAudio))
	assert.Equal(t, LabelTyping, LabelFor(KindText))
	assert.Equal(t, LabelTyping, LabelFor(KindImage))
	assert.Equal(t, LabelTyping, LabelFor(KindVideo))
}
