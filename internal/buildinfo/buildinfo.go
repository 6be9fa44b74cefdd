// Package buildinfo reports the version of the running binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.1.0"

// Linker-overridable build metadata, e.g.
//
//	go build -ldflags "-X github.com/agusx1211/loopdash/internal/buildinfo.Version=1.2.0"
var (
	Version    = devVersion
	CommitHash = ""
	BuildDate  = ""
)

// Info is normalized build metadata for display.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version,omitempty"`
}

func (i Info) String() string {
	return fmt.Sprintf("loopdash %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildDate)
}

type vcsInfo struct {
	revision string
	time     string
	dirty    bool
}

// Current returns linker overrides first, then whatever the Go toolchain
// stamped into the binary, then "unknown".
func Current() Info {
	info := Info{
		Version:    strings.TrimSpace(Version),
		CommitHash: strings.TrimSpace(CommitHash),
		BuildDate:  strings.TrimSpace(BuildDate),
	}

	var vcs vcsInfo
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if (info.Version == "" || info.Version == devVersion) && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		vcs = readVCS(bi.Settings)
	}

	if info.CommitHash == "" && vcs.revision != "" {
		info.CommitHash = vcs.revision
		if vcs.dirty {
			info.CommitHash += "-dirty"
		}
	}
	if info.BuildDate == "" {
		info.BuildDate = vcs.time
	}
	if parsed, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildDate = parsed.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	info.Version = orUnknown(info.Version)
	info.CommitHash = orUnknown(info.CommitHash)
	info.BuildDate = orUnknown(info.BuildDate)
	return info
}

func readVCS(settings []debug.BuildSetting) vcsInfo {
	var v vcsInfo
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = strings.TrimSpace(s.Value)
		case "vcs.time":
			v.time = strings.TrimSpace(s.Value)
		case "vcs.modified":
			v.dirty = strings.EqualFold(strings.TrimSpace(s.Value), "true")
		}
	}
	return v
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
