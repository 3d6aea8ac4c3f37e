package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of the application
const Version = "1.0.0"

// ReportFormatVersion changes whenever the layout of the markdown report does
const ReportFormatVersion = "v1"

// Stamped by build.go through -ldflags -X.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version      string `json:"version"`
	ReportFormat string `json:"report_format"`
	BuildTime    string `json:"build_time"`
	Commit       string `json:"commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

// GetVersionInfo returns the version of the running binary. Without stamped
// values it falls back to the VCS data the Go toolchain embeds.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		ReportFormat: ReportFormatVersion,
		BuildTime:    BuildTime,
		Commit:       GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = shortRevision(s.Value)
		case s.Key == "vcs.time" && info.BuildTime == "unknown":
			info.BuildTime = s.Value
		}
	}
	return info
}

// String formats the version for a log line or --version style output
func (v VersionInfo) String() string {
	return fmt.Sprintf("outlet-report v%s (report %s, built %s, commit %s, %s %s)",
		v.Version, v.ReportFormat, v.BuildTime, v.Commit, v.GoVersion, v.Platform)
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
