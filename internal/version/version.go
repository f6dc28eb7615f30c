// Package version carries build-time version metadata.
package version

// Version is the release version. Set via build-time ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/bundler/internal/version.Version=v1.2.0".
var Version = "dev"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the full version line shown by --version.
func String() string {
	s := Version
	if GitCommit != "unknown" {
		s += " (" + GitCommit + ")"
	}
	return s
}
