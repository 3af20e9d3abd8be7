package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: sample
gate:
  reprompts:
    - "send the receipt"
    - "still waiting"
  confirmation: "got it"
  follow_up: "https://example.com"
steps:
  - action: send_message
    text: "hello there"
    typing_delay: 1.5s
  - action: send_message
    kind: audio
    media: intro.ogg
    duration_seconds: 12
    typing_delay_ms: 300
  - action: wait_for_reply
    checkpoint: true
  - action: send_message
    kind: image
    media: schedule.png
    text: caption
`

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name())
	require.Equal(t, 4, s.Len())

	first, _ := s.Get(0)
	assert.Equal(t, domain.KindText, first.Kind, "kind defaults to text")
	assert.Equal(t, 1500*time.Millisecond, first.TypingDelay)

	audio, _ := s.Get(1)
	assert.Equal(t, domain.KindAudio, audio.Kind)
	assert.Equal(t, 12*time.Second, audio.Duration)
	assert.Equal(t, 300*time.Millisecond, audio.TypingDelay)

	idx, ok := s.Checkpoint()
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "still waiting", s.Reprompt(5))
	assert.Equal(t, "https://example.com", s.FollowUp())
}

func TestParse_JSON(t *testing.T) {
	s, err := Parse([]byte(`{"steps":[{"action":"send_message","text":"hi"},{"action":"wait_for_reply"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestParse_Errors(t *testing.T) {
	t.Run("Unknown Key", func(t *testing.T) {
		_, err := Parse([]byte("steps:\n  - action: send_message\n    txt: typo\n"))
		assert.ErrorIs(t, err, domain.ErrInvalidScript)
	})

	t.Run("Invalid Step", func(t *testing.T) {
		_, err := Parse([]byte("steps:\n  - action: send_message\n    kind: video\n"))
		assert.ErrorIs(t, err, domain.ErrInvalidScript)
	})

	t.Run("Conflicting Checkpoints", func(t *testing.T) {
		doc := "checkpoint: 0\ngate: {reprompts: [r], confirmation: c}\nsteps:\n  - action: wait_for_reply\n  - action: wait_for_reply\n    checkpoint: true\n"
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, domain.ErrInvalidScript)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		_, err := Parse([]byte("steps: [unterminated"))
		assert.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	original := Default()

	data, err := Marshal(original)
	require.NoError(t, err)

	restored, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, original.Steps(), restored.Steps())
	assert.Equal(t, original.Reprompts(), restored.Reprompts())
	assert.Equal(t, original.PaymentReminders(), restored.PaymentReminders())
	orig, _ := original.Checkpoint()
	got, _ := restored.Checkpoint()
	assert.Equal(t, orig, got)
}
