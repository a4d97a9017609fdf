// Package buildinfo carries version metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/cleared-dev/coinledger/internal/buildinfo.Version=v1.2.0"
package buildinfo

var (
	// Version will be set via ldflags during build.
	Version = "dev"
	// Commit will be set via ldflags during build.
	Commit = "none"
	// Date will be set via ldflags during build.
	Date = "unknown"
)
