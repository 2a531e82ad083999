// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "1.0.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String renders the build line printed by -version flags and the about dialog.
func String(program string) string {
	return fmt.Sprintf("%s %s (built %s, commit %s)", program, Version, BuildTime, GitCommit)
}
