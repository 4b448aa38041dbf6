// Package version exposes build information stamped at link time via
// -ldflags "-X github.com/verdantio/cropsense/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the semantic version of the build ("dev" when unstamped).
	Version = "dev"
	// Commit is the short git commit hash of the build.
	Commit = "unknown"
	// Date is the build timestamp in RFC 3339.
	Date = "unknown"
)

// Short returns just the version string, e.g. "0.3.1" or "dev".
func Short() string {
	return Version
}

// Info returns a human-readable version line for CLI output.
func Info() string {
	return fmt.Sprintf("cropsense %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns version fields for JSON health responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
