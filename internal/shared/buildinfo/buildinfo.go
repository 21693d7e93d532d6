// Package buildinfo carries the version stamped into the binary at build
// time via -ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
)
