package app

// Build information, set with -ldflags "-X .../internal/app.BuildVersion=...".
// /healthz and the startup log report it.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)
