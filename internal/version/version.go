// Package version holds build-time-injected version metadata, set via
// -ldflags at build time (e.g. -X internal/version.Version=1.2.3).
package version

var (
	// Version is the release version, or "dev" outside a tagged build.
	Version = "dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"
	// BuildTime is the RFC 3339 build timestamp.
	BuildTime = "unknown"
)
