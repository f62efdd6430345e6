// Package version provides version information for the BodyTrack client.
// Version variables can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/Eladkrauz/BodyTrackClient/version.version=1.0.0"
package version

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// devVersion is the default version when not set via ldflags
	devVersion = "dev"
	// shortCommitLen is the length of the short commit hash
	shortCommitLen = 7
	// vcsRevisionKey is the build info key for git commit
	vcsRevisionKey = "vcs.revision"
	// vcsModifiedKey is the build info key for dirty state
	vcsModifiedKey = "vcs.modified"
)

// Build-time variables - can be overridden with -ldflags
var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the current version string.
// Falls back to build info from go modules if version is "dev".
func GetVersion() string {
	if version != devVersion {
		return version
	}

	// Try to get version from build info (go modules)
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return devVersion
}

// CheckCompatibility reports whether this client satisfies the minimum
// version the analysis service demands. An empty minimum means the service
// imposes no floor. Development builds always pass; they carry no
// comparable version.
func CheckCompatibility(minRequired string) error {
	if minRequired == "" {
		return nil
	}

	current := GetVersion()
	if current == devVersion {
		return nil
	}

	currentVer, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("parsing client version %q: %w", current, err)
	}
	minVer, err := semver.NewVersion(minRequired)
	if err != nil {
		return fmt.Errorf("parsing required version %q: %w", minRequired, err)
	}

	if currentVer.LessThan(minVer) {
		return fmt.Errorf("client version %s is older than required minimum %s", current, minRequired)
	}
	return nil
}

// getCommitFromBuildInfo extracts the git commit hash from build info.
func getCommitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey && setting.Value != "" {
			return setting.Value[:min(shortCommitLen, len(setting.Value))]
		}
	}
	return ""
}

// isDirtyFromBuildInfo checks if the build has uncommitted changes.
func isDirtyFromBuildInfo() bool {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return false
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsModifiedKey && setting.Value == "true" {
			return true
		}
	}
	return false
}

// GetVersionInfo returns detailed version information for display.
func GetVersionInfo() string {
	var b strings.Builder

	v := GetVersion()
	fmt.Fprintf(&b, "BodyTrack client version %s", v)

	commit := gitCommit
	if commit == "" {
		commit = getCommitFromBuildInfo()
	}

	if commit != "" {
		fmt.Fprintf(&b, "\ncommit: %s", commit)
	}

	if buildDate != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", buildDate)
	}

	return b.String()
}

// GetBuildInfo returns version details as structured slog attributes.
// This is useful for including version info in log messages.
func GetBuildInfo() []any {
	attrs := []any{
		"version", GetVersion(),
	}

	commit := gitCommit
	if commit == "" {
		commit = getCommitFromBuildInfo()
	}

	if commit != "" {
		attrs = append(attrs, "commit", commit)
	}

	if gitCommit == "" && isDirtyFromBuildInfo() {
		attrs = append(attrs, "dirty", true)
	}

	if buildDate != "" {
		attrs = append(attrs, "built", buildDate)
	}

	return attrs
}

// LogStartup logs version information at debug level.
// This is called by the logger package after initialization.
func LogStartup() {
	// Only log at debug level to avoid noise in production
	level := slog.LevelDebug

	// Check if debug logging is enabled
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug", "trace":
			// Continue to log
		default:
			// Skip logging if not debug/trace
			return
		}
	} else {
		// Default is info, so skip debug logging
		return
	}

	attrs := GetBuildInfo()
	slog.Log(context.Background(), level, "BodyTrack client starting", attrs...)
}
