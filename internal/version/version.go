// Package version holds build metadata injected via ldflags:
//
//	-X github.com/nexusplanner/nexusrag/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs and the user agent.
func String() string {
	return fmt.Sprintf("nexusrag %s (commit %s, built %s)", Version, shortCommit(Commit), Date)
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
