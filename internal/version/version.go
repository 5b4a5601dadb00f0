// Package version reports which build of the gateway is running.
//
// Release builds inject the values with -ldflags:
//
//	-X github.com/ferro-labs/media-gateway/internal/version.Version=v0.1.0
//	-X github.com/ferro-labs/media-gateway/internal/version.Commit=abc1234
//	-X github.com/ferro-labs/media-gateway/internal/version.Date=2026-02-25T00:00:00Z
//
// Builds without ldflags fall back to the module version and VCS stamp the
// Go toolchain records, so `go install ...@v0.1.0` still reports v0.1.0.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fillOnce sync.Once

// fill replaces the dev defaults from the embedded build info, once.
func fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
				if len(Commit) > 7 {
					Commit = Commit[:7]
				}
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// String returns e.g. "v0.1.0 (commit abc1234, built 2026-02-25T12:00:00Z)".
func String() string {
	fill()
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns the version tag alone.
func Short() string {
	fill()
	return Version
}

// UserAgent is sent on every upstream call. Freesound and Pexels both ask
// API clients to identify themselves.
func UserAgent() string {
	return "mediagw/" + Short()
}
