// Build information of the strata binary, stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/nobletooth/strata/pkg/utils.Version=v1.2.0 \
//	  -X github.com/nobletooth/strata/pkg/utils.Commit=$(git rev-parse HEAD)" ./cmd/strata
//
// Unstamped builds report a development version.

package utils

import (
	"log/slog"
	"strconv"
	"time"
)

var (
	TestMode   string // Set to "true" to make invariant violations panic.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

const (
	devVersion = "v0.0.0-dev" // Keeps Version a valid semantic version for unstamped builds.
	unknown    = "unknown"
)

func init() {
	StartTime = time.Now()

	if Version == "" {
		Version = devVersion
	}
	if Commit == "" {
		Commit = unknown
	}
	if BuildTime == "" {
		BuildTime = unknown
	}
	if len(TestMode) > 0 {
		if isTestMode, err := strconv.ParseBool(TestMode); err == nil {
			IsTestMode = isTestMode
		} else {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
	}
}

// BuildInfo returns the build information as slog key-value pairs, as printed by `strata --print_version`.
func BuildInfo() []any {
	return []any{"version", Version, "commit", Commit, "buildTime", BuildTime,
		"uptime", time.Since(StartTime).Round(time.Millisecond).String()}
}
