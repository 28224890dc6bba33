// Package version holds build metadata injected at link time, e.g.
//
//	go build -ldflags "-X github.com/OpenCHAMI/patchbay/internal/version.Version=v1.0.0"
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release, such as v1.0.0. Falls back to the module
	// version recorded by the Go toolchain.
	Version string
	// GitCommit is the full commit hash.
	GitCommit string
	// GitBranch is the branch the binary was built from.
	GitBranch string
	// GitTag is the most recent tag at build time, if any.
	GitTag string
	// GitState is "clean" or "dirty".
	GitState string
	// BuildTime is the UTC build timestamp.
	BuildTime string
	BuildHost string
	BuildUser string
	// GoVersion defaults to runtime.Version().
	GoVersion string
)

type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty" yaml:"git_branch,omitempty"`
	GitTag    string `json:"git_tag,omitempty" yaml:"git_tag,omitempty"`
	GitState  string `json:"git_state,omitempty" yaml:"git_state,omitempty"`
	BuildTime string `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	BuildHost string `json:"build_host,omitempty" yaml:"build_host,omitempty"`
	BuildUser string `json:"build_user,omitempty" yaml:"build_user,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get() collects the build metadata, filling gaps from the build info
// embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		GitTag:    GitTag,
		GitState:  GitState,
		BuildTime: BuildTime,
		BuildHost: BuildHost,
		BuildUser: BuildUser,
		GoVersion: GoVersion,
	}
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				if info.GitState == "" && s.Value == "true" {
					info.GitState = "dirty"
				} else if info.GitState == "" {
					info.GitState = "clean"
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "(devel)"
	}
	return info
}

// WriteText() prints one field per line, skipping unknown ones.
func (i Info) WriteText(w io.Writer) {
	fields := []struct{ name, value string }{
		{"Version", i.Version},
		{"Git Commit", i.GitCommit},
		{"Git Branch", i.GitBranch},
		{"Git Tag", i.GitTag},
		{"Git State", i.GitState},
		{"Build Time", i.BuildTime},
		{"Build Host", i.BuildHost},
		{"Build User", i.BuildUser},
		{"Go Version", i.GoVersion},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "%s: %s\n", f.name, f.value)
		}
	}
}

// String() is the single-line form used in logs.
func (i Info) String() string {
	s := fmt.Sprintf("patchbay %s (%s)", i.Version, i.GoVersion)
	if i.GitCommit != "" {
		s += " commit " + i.GitCommit
	}
	return s
}
