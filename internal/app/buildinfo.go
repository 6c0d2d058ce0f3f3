package app

// Set with -ldflags "-X github.com/hyperifyio/jobextract/internal/app.BuildVersion=..."
// at release time; the defaults identify local builds.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)
