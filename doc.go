/*
Package drip plays a scripted, one-sided chat conversation.

A script is a fixed sequence of bot actions: send a text, image, audio or
video message, wait for the lead to reply, or (optionally) walk a payment
flow. The Session walks the script on its own, simulating typing and
recording delays, and pauses at every reply point until the host reports the
lead's next message. Progress and the transcript are persisted, so a session
resumes where it stopped after a restart.

# Reply gate

Ordinary pause points resume on any reply. The script may mark one pause
point as a proof-of-receipt checkpoint: there a text reply is answered with an
escalating re-prompt, while an image, audio or video reply is accepted,
confirmed and lets the script continue.

# Usage

	sess, err := drip.New(
		drip.WithScript(script.Default()),
		drip.WithStore(file.New(".drip/session")),
		drip.WithLifecycleHooks(domain.LifecycleHooks{
			OnMessage: func(ctx context.Context, m domain.Message) {
				fmt.Println(m.Originator, m.Content)
			},
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		log.Fatal(err)
	}
	_, _ = sess.SendText(ctx, "hello!")

Delays run in real time by default; WithTimeScale speeds them up for demos
and tests.
*/
package drip
