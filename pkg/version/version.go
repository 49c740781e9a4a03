// Package version holds build metadata for the timelod binary.
package version

import "runtime/debug"

// Build metadata, overridden at link time with
// -ldflags "-X github.com/Sumatoshi-tech/timelod/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// develVersion is what the module reports for non-release builds.
const develVersion = "(devel)"

// InitBinaryVersion fills unset metadata from the embedded build info, so
// `go install`ed binaries report their module version and VCS revision.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != develVersion {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "<unknown>" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "<unknown>" {
				Date = s.Value
			}
		}
	}
}

// String returns the one-line version banner.
func String() string {
	return "timelod " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
