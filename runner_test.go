package drip_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/timer"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/dsl"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    drip.Command
		wantErr bool
	}{
		{"hello there", drip.Command{Type: drip.CommandText, Reply: domain.Inbound{Kind: domain.KindText, Content: "hello there"}}, false},
		{"/image receipt.png", drip.Command{Type: drip.CommandMedia, Reply: domain.Inbound{Kind: domain.KindImage, MediaRef: "receipt.png"}}, false},
		{"/audio note.ogg 7", drip.Command{Type: drip.CommandMedia, Reply: domain.Inbound{Kind: domain.KindAudio, MediaRef: "note.ogg", Duration: 7 * time.Second}}, false},
		{"/video clip.mp4", drip.Command{Type: drip.CommandMedia, Reply: domain.Inbound{Kind: domain.KindVideo, MediaRef: "clip.mp4"}}, false},
		{"/pay 19.90", drip.Command{Type: drip.CommandPay, Amount: 19.90}, false},
		{"/reset", drip.Command{Type: drip.CommandReset}, false},
		{"/status", drip.Command{Type: drip.CommandStatus}, false},
		{"/retry", drip.Command{Type: drip.CommandRetry}, false},
		{"/quit", drip.Command{Type: drip.CommandQuit}, false},
		{"/pay", drip.Command{}, true},
		{"/pay -3", drip.Command{}, true},
		{"/image", drip.Command{}, true},
		{"/audio a.ogg soon", drip.Command{}, true},
		{"/dance", drip.Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := drip.ParseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunner_PrintsBotMessages(t *testing.T) {
	var out bytes.Buffer
	r := &drip.Runner{Output: &out, Headless: true}
	hooks := r.Hooks()
	ctx := context.Background()

	hooks.OnMessage(ctx, domain.Message{Originator: domain.FromBot, Kind: domain.KindText, Content: "hi"})
	hooks.OnMessage(ctx, domain.Message{Originator: domain.FromLead, Kind: domain.KindText, Content: "echo"})
	hooks.OnMessage(ctx, domain.Message{Originator: domain.FromBot, Kind: domain.KindAudio, MediaRef: "a.ogg", Duration: 12 * time.Second})
	hooks.OnMessage(ctx, domain.Message{Originator: domain.FromBot, Kind: domain.KindText, Pix: &domain.PixAttachment{QRText: "0002"}})
	assert.Nil(t, hooks.OnStatusChange, "headless runners do not print presence")

	assert.Equal(t, "hi\n[audio 12s] a.ogg\nPIX copy-and-paste code: 0002\n", out.String())
}

func TestRunner_Run(t *testing.T) {
	out := &syncBuffer{}
	input := strings.NewReader("/status\n/dance\n/quit\nnever read\n")
	r := &drip.Runner{Input: input, Output: out}

	sess, err := drip.New(
		drip.WithScript(dsl.New("console").Text("welcome").WaitForReply().MustBuild()),
		drip.WithTimeScale(0),
		drip.WithLifecycleHooks(r.Hooks()),
	)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, r.Run(context.Background(), sess))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "welcome")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `Playing "console" (2 steps)`)
	assert.Contains(t, out.String(), "state=")
	assert.Contains(t, out.String(), "unknown command /dance")
}

type failOnceStore struct {
	ports.Store
	mu     sync.Mutex
	failed bool
}

func (s *failOnceStore) SetStepIndex(ctx context.Context, n int) error {
	s.mu.Lock()
	fail := !s.failed
	s.failed = true
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.SetStepIndex(ctx, n)
}

func (s *failOnceStore) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func TestRunner_RetryUnsticksFailedStep(t *testing.T) {
	out := &syncBuffer{}
	in, feed := io.Pipe()
	r := &drip.Runner{Input: in, Output: out, Headless: true}
	clock := timer.NewManual()
	ctx := context.Background()

	store := &failOnceStore{Store: memory.NewStore()}
	sess, err := drip.New(
		drip.WithScript(dsl.New("console").Text("hi").WaitForReply().MustBuild()),
		drip.WithStore(store),
		drip.WithClock(clock.Sleep, clock),
		drip.WithLifecycleHooks(r.Hooks()),
	)
	require.NoError(t, err)
	defer sess.Close()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, sess) }()

	require.Eventually(t, func() bool {
		clock.Drain()
		return store.Failed()
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, domain.StateIdle, sess.Status(ctx).State)
	require.Equal(t, 0, sess.Status(ctx).StepIndex)

	_, err = io.WriteString(feed, "/retry\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Retried") }, time.Second, 5*time.Millisecond)
	clock.Drain()

	assert.Equal(t, domain.StateWaitingForReply, sess.Status(ctx).State)
	assert.Equal(t, 1, sess.Status(ctx).StepIndex)
	assert.Contains(t, out.String(), "hi\n")

	_, err = io.WriteString(feed, "/quit\n")
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestRunner_RequiresIO(t *testing.T) {
	sess, err := drip.New()
	require.NoError(t, err)
	defer sess.Close()

	assert.Error(t, (&drip.Runner{}).Run(context.Background(), sess))
}
