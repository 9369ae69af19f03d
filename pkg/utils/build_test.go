package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/mod/semver"
)

func TestVersionIsSemantic(t *testing.T) {
	assert.Truef(t, semver.IsValid(Version), "Version %s is not a valid semantic version", Version)
}

func TestBuildInfo(t *testing.T) {
	info := BuildInfo()
	assert.Len(t, info, 8, "Expected key-value pairs")
	assert.Equal(t, []any{"version", Version, "commit", Commit, "buildTime", BuildTime}, info[:6])
	assert.Equal(t, "uptime", info[6])
}
