package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/sequencer"
	"github.com/aretw0/drip/internal/timer"
	httpadapter "github.com/aretw0/drip/pkg/adapters/http"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/dsl"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...drip.Option) (*httptest.Server, *drip.Session, *timer.Manual, *httpadapter.StreamManager) {
	t.Helper()
	clock := timer.NewManual()
	streams := httpadapter.NewStreamManager(nil)
	opts = append([]drip.Option{
		drip.WithScript(dsl.New("api").Text("hello").Checkpoint().Text("bye").
			Reprompts("need proof").Confirmation("thanks", "https://example.com").MustBuild()),
		drip.WithClock(clock.Sleep, clock),
		drip.WithLifecycleHooks(domain.LifecycleHooks{OnMessage: streams.OnMessage}),
	}, opts...)
	sess, err := drip.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	srv := httptest.NewServer(httpadapter.NewHandler(sess, httpadapter.WithStreams(streams)))
	t.Cleanup(srv.Close)
	return srv, sess, clock, streams
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Health(t *testing.T) {
	srv, _, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ReplyFlow(t *testing.T) {
	srv, sess, clock, _ := newServer(t)
	require.NoError(t, sess.Start(context.Background()))
	clock.Drain()

	resp := post(t, srv.URL+"/reply", `{"content":"hi"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var msg domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, domain.FromLead, msg.Originator)
	assert.Equal(t, "hi", msg.Content)

	resp = post(t, srv.URL+"/reply", `{"kind":"image","media_ref":"receipt.png"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	clock.Drain()

	tr, err := http.Get(srv.URL + "/transcript")
	require.NoError(t, err)
	defer tr.Body.Close()
	var msgs []domain.Message
	require.NoError(t, json.NewDecoder(tr.Body).Decode(&msgs))

	var bot []string
	for _, m := range msgs {
		if m.Originator == domain.FromBot {
			bot = append(bot, m.Content)
		}
	}
	assert.Equal(t, []string{"hello", "need proof", "thanks", "https://example.com", "bye"}, bot)

	st, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer st.Body.Close()
	var status sequencer.Status
	require.NoError(t, json.NewDecoder(st.Body).Decode(&status))
	assert.Equal(t, domain.StateFinished, status.State)
	assert.Equal(t, 3, status.StepIndex)
}

func TestServer_ReplyValidation(t *testing.T) {
	srv, _, _, _ := newServer(t, drip.WithMaxInputSize(8))

	tests := []struct {
		name string
		body string
	}{
		{"Malformed JSON", `{`},
		{"Unknown Kind", `{"kind":"sticker"}`},
		{"Too Large", `{"content":"this is far too long"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/reply", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_PaymentDisabled(t *testing.T) {
	srv, _, _, _ := newServer(t)

	resp := post(t, srv.URL+"/payment", `{"amount":10}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, srv.URL+"/payment", `{"amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Reset(t *testing.T) {
	srv, sess, clock, _ := newServer(t)
	require.NoError(t, sess.Start(context.Background()))
	clock.Drain()
	post(t, srv.URL+"/reply", `{"content":"x"}`)

	resp := post(t, srv.URL+"/reset", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clock.Drain()

	assert.Len(t, sess.Transcript(context.Background()), 1)
}

func TestServer_Script(t *testing.T) {
	srv, _, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/script")
	require.NoError(t, err)
	defer resp.Body.Close()

	var doc struct {
		Name  string `json:"name"`
		Steps []struct {
			Action     string `json:"action"`
			Checkpoint bool   `json:"checkpoint"`
		} `json:"steps"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "api", doc.Name)
	require.Len(t, doc.Steps, 3)
	assert.True(t, doc.Steps[1].Checkpoint)
}

func TestServer_Events(t *testing.T) {
	srv, _, _, streams := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = reader.ReadString('\n') // data: connected
	_, _ = reader.ReadString('\n') // blank

	streams.OnMessage(context.Background(), domain.Message{ID: "m1", Content: "hello"})

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: message\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"id":"m1"`)
}

func TestStreamManager_UnsubscribeIsIdempotent(t *testing.T) {
	sm := httpadapter.NewStreamManager(nil)
	ch, cancel := sm.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	sm.Broadcast("ignored")
}

type flakyStore struct {
	ports.Store
	failSets atomic.Int32
}

func (s *flakyStore) SetStepIndex(ctx context.Context, n int) error {
	if s.failSets.Add(-1) >= 0 {
		return errors.New("disk full")
	}
	return s.Store.SetStepIndex(ctx, n)
}

func TestServer_ProcessRetriesFailedStep(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	store.failSets.Store(1)
	srv, sess, clock, _ := newServer(t, drip.WithStore(store))
	ctx := context.Background()

	require.NoError(t, sess.Start(ctx))
	clock.Drain()
	require.Equal(t, domain.StateIdle, sess.Status(ctx).State)
	require.Equal(t, 0, sess.Status(ctx).StepIndex)

	// Replies do not move an idle engine.
	post(t, srv.URL+"/reply", `{"content":"anyone?"}`)
	clock.Drain()
	require.Equal(t, 0, sess.Status(ctx).StepIndex)

	resp := post(t, srv.URL+"/process", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	clock.Drain()

	status := sess.Status(ctx)
	assert.Equal(t, domain.StateWaitingForReply, status.State)
	assert.Equal(t, 1, status.StepIndex)

	var hellos int
	for _, m := range sess.Transcript(ctx) {
		if m.Content == "hello" {
			hellos++
		}
	}
	assert.Equal(t, 1, hellos, "retried step is not emitted twice")
}
