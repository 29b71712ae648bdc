// Package version exposes build metadata, set at link time.
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
