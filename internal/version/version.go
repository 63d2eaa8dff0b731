// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package version reports which rollcall build produced a roster. Release
// builds stamp the values with -ldflags "-X"; a plain `go build` or
// `go install` falls back to the module and VCS data the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

const (
	unknown     = "unknown"
	development = "0.0.0-development"
)

var (
	// Version of rollcall, e.g. "1.2.0"
	Version = development

	// GitCommit the binary was built from
	GitCommit = unknown

	// BuildDate in RFC 3339
	BuildDate = unknown
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	Date      string
	Modified  bool // built from a dirty working tree
	GoVersion string
	Platform  string
}

var (
	once    sync.Once
	current Build
)

// Current returns the build description, resolved once per process.
func Current() Build {
	once.Do(func() {
		info, _ := debug.ReadBuildInfo()
		current = resolve(Version, GitCommit, BuildDate, info)
	})
	return current
}

// resolve prefers linker-stamped values and fills the gaps from info.
func resolve(version, commit, date string, info *debug.BuildInfo) Build {
	b := Build{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if info == nil {
		return b
	}

	if info.GoVersion != "" {
		b.GoVersion = info.GoVersion
	}
	if b.Version == development && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == unknown {
				b.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if b.Date == unknown {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// Info is the one-line form printed by --version.
func Info() string {
	b := Current()
	commit := b.Commit
	if b.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("rollcall %s (commit: %s, built: %s, go: %s, platform: %s)",
		b.Version, commit, b.Date, b.GoVersion, b.Platform)
}

// Full is the map served by the health endpoint.
func Full() map[string]string {
	b := Current()
	return map[string]string{
		"version":   b.Version,
		"commit":    b.Commit,
		"buildDate": b.Date,
		"modified":  fmt.Sprint(b.Modified),
		"goVersion": b.GoVersion,
		"platform":  b.Platform,
	}
}
