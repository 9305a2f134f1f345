// Package buildinfo carries identifiers stamped in with
//
//	-ldflags "-X furi/internal/buildinfo.Version=... -X furi/internal/buildinfo.Commit=..."
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact build identifier for log lines.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Describe returns the full identifier printed by -version.
func Describe(program string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", program, Version, Commit, Date)
}
