package drip

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/drip.Version=v1.2.3".
var Version = "dev"
