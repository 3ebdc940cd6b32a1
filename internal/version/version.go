// Package version holds build-time version information, populated via
// -ldflags at release time.
package version

// Version is the semantic version of this build.
var Version = "dev"

// Commit is the git commit hash of this build.
var Commit = "unknown"
