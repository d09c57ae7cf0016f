// Package version exposes the build version of the tlc binary.
package version

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/tlc-tools/tlc/internal/version.Version=0.2.0"
var Version = "dev"
