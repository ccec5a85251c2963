// Package version holds the build identity of the compdb binary.
package version

import "runtime/debug"

// Overridden at build time:
// go build -ldflags "-X compdb/internal/version.Version=1.2.0 -X compdb/internal/version.Commit=abc123"
var (
	// Version is the semantic version of compdb
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Revision returns Commit, falling back to the VCS revision the Go toolchain
// stamped into the binary.
func Revision() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return Commit
}

// Info returns a formatted version string
func Info() string {
	if rev := Revision(); rev != "unknown" && len(rev) > 7 {
		return Version + " (" + rev[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "compdb version " + Version + "\n" +
		"Commit: " + Revision() + "\n" +
		"Built: " + BuildDate
}
