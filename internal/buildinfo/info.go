// Package buildinfo holds version metadata stamped in with -ldflags -X.
package buildinfo

// Defaults for untagged local builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
