// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:gochecknoglobals // Set via -ldflags "-X" at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "version (commit, built date)".
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, Date)
}
