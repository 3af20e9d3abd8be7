package script

import (
	"time"

	"github.com/aretw0/drip/pkg/domain"
)

// DefaultCheckpoint is the receipt checkpoint of the built-in script.
const DefaultCheckpoint = 12

// Default returns the built-in demo script: a workshop registration that
// greets the lead, shares a preview, asks for payment and waits for a receipt.
func Default() *Script {
	return MustNew([]domain.Step{
		domain.SendText("Hi! Thanks for reaching out to Northwind Studio 👋", 2*time.Second),
		domain.SendText("Are you interested in this month's workshop pass?", 3*time.Second),
		domain.WaitForReply(),
		domain.SendText("Great! Here is a short preview of what we cover.", 4*time.Second),
		domain.SendVideo("media/preview.mp4", "", 5*time.Second),
		domain.SendAudio("media/intro.ogg", 12*time.Second, 3*time.Second),
		domain.SendImage("media/schedule.png", "This week's schedule", 3*time.Second),
		domain.SendText("Any questions so far?", 4*time.Second),
		domain.WaitForReply(),
		domain.SendText("The pass is *10.00* and covers all four sessions. You can pay by bank transfer to the account below 👇", 5*time.Second),
		domain.SendText("0000-1234-5678", time.Second),
		domain.SendText("Once it's done, send me a picture of the receipt here.", time.Second),
		domain.WaitForReply(),
		domain.SendText("See you at the workshop!", 3*time.Second),
	},
		WithName("workshop"),
		WithCheckpoint(DefaultCheckpoint),
		WithReprompts(
			"I still need the receipt to confirm your spot.",
			"Could you send a photo or a screenshot of the receipt?",
			"Without the receipt I can't confirm your registration.",
		),
		WithConfirmation(
			"Thank you! The payment came through. I'm sending your access link now, let me know if anything goes wrong.",
			"https://example.com/workshop/access",
		),
		WithPaymentReminders(
			"I'm waiting for the payment to send your pass.",
			"I still can't see the payment on my side.",
			"Send me the receipt here once it's done!",
		),
	)
}
