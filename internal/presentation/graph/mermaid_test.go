package graph

import (
	"strings"
	"testing"

	"github.com/aretw0/drip/pkg/dsl"
	"github.com/aretw0/drip/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gated() *script.Script {
	return dsl.New("graph").
		Text(`say "hi"`).
		WaitForReply().
		Audio("intro.ogg", 0).
		Checkpoint().
		Text("this is a rather long closing message that gets cut").
		Reprompts("send it").
		Confirmation("ok", "https://example.com").
		MustBuild()
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := GenerateMermaid(gated(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `s0["0. say 'hi'"]`)
	assert.Contains(t, out, `s1[/"1. wait_for_reply"/]`)
	assert.Contains(t, out, `s2["2. audio intro.ogg"]`)
	assert.Contains(t, out, `s3{"3. wait_for_reply"}`)
	assert.Contains(t, out, `s3 -. "text: reprompt" .-> s3`)
	assert.Contains(t, out, `s4["4. this is a rather long closing..."]`)
	assert.Contains(t, out, "start --> s0")
	assert.Contains(t, out, "s4 --> done")
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := GenerateMermaid(gated(), &Overlay{Current: 2})

	assert.Contains(t, out, "class s0 visited;")
	assert.Contains(t, out, "class s1 visited;")
	assert.NotContains(t, out, "class s2 visited;")
	assert.Contains(t, out, "class s2 current;")
}

func TestGenerateMermaid_OverlayFinished(t *testing.T) {
	out := GenerateMermaid(gated(), &Overlay{Current: 5, Finished: true})

	assert.Contains(t, out, "class s4 visited;")
	assert.Contains(t, out, "class done current;")
}

func TestGenerateMermaid_PaymentLoop(t *testing.T) {
	s := dsl.New("pay").PaymentButtons().Pix().WaitForPayment().Text("x").
		PaymentReminders("not yet").Confirmation("paid", "https://example.com").MustBuild()
	out := GenerateMermaid(s, nil)

	require.Contains(t, out, `s0[["0. show_payment_buttons"]]`)
	assert.Contains(t, out, `s2 -. "unpaid: remind" .-> s2`)
}
