// Package version reports parley build metadata. Release builds set the
// variables with -ldflags; other builds fall back to the VCS stamp in the
// binary's build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// String renders the one-line version banner.
func String() string {
	commit, date := Commit, Date
	if commit == "" || date == "" {
		vcsCommit, vcsDate := fromBuildInfo()
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsDate
		}
	}
	if commit == "" {
		commit = "none"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("parley %s (commit=%s, date=%s, go=%s)", Version, commit, date, runtime.Version())
}

func fromBuildInfo() (commit, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = shortRevision(setting.Value)
		case "vcs.time":
			date = setting.Value
		}
	}
	return commit, date
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
