// Package buildinfo reports the version a binary was built from.
//
// Release builds set the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/chromascribe/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/chromascribe/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/chromascribe/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// A binary built with "go install ...@version" has no ldflags; its module
// version and VCS revision are read from the embedded build info instead.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "none":
			Commit = s.Value
		case s.Key == "vcs.time" && Date == "unknown":
			Date = s.Value
		}
	}
}

// Short returns a compact identifier for window titles and log lines: the
// version for releases, else the abbreviated commit.
func Short() string {
	switch {
	case Version != "dev":
		return Version
	case len(Commit) >= 7:
		return Commit[:7]
	case Commit != "none":
		return Commit
	}
	return "dev"
}

// String returns the build information on three lines.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return "{{.Name}} version " + Version + "\ncommit: " + Commit + "\nbuilt: " + Date + "\n"
}
