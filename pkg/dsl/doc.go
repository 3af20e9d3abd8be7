/*
Package dsl provides a fluent Go builder for drip scripts.

It is an alternative to YAML documents and markdown directories when a script
is assembled in code, for example in tests or when steps are generated.

Example usage:

	s, err := dsl.New("onboarding").
		Text("Hi! Thanks for reaching out 👋").
		WaitForReply().
		Audio("media/intro.ogg", 12*time.Second).
		Text("Send me the receipt once you're done.").
		Checkpoint().
		Reprompts("I still need the receipt.").
		Confirmation("Thanks! Payment received.", "https://example.com/access").
		Build()
*/
package dsl
