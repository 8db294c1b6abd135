// Package version holds build information injected at link time.
package version

// Version is the released version of the status monitor.
var Version = "0.0.0"

// GitCommit is the git commit hash, set via -ldflags.
var GitCommit = "unknown"

// BuildDate is the build timestamp, set via -ldflags.
var BuildDate = "unknown"
