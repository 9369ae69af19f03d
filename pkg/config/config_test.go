package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMaxEntries = flag.Int("test_config_max_entries", 10, "Used by config tests.")
	testEviction   = flag.String("test_config_eviction", "none", "Used by config tests.")
	testCompress   = flag.Bool("test_config_compress", false, "Used by config tests.")
)

// writeConfigFile writes the content under a temp directory and returns its path.
func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetTestFlags restores the test flags once the test is done.
func resetTestFlags(t *testing.T) {
	t.Helper()
	SetTestFlag(t, "test_config_max_entries", "10")
	SetTestFlag(t, "test_config_eviction", "none")
	SetTestFlag(t, "test_config_compress", "false")
}

func TestLoadConfigFile(t *testing.T) {
	for _, testCase := range []struct {
		name     string
		fileName string
		content  string
	}{
		{
			name:     "json",
			fileName: "config.json",
			content:  `{"test_config_max_entries": 128, "test_config_eviction": "lru", "test_config_compress": true}`,
		},
		{
			name:     "yaml",
			fileName: "config.yaml",
			content:  "test_config_max_entries: 128\ntest_config_eviction: lru\ntest_config_compress: true\n",
		},
		{
			name:     "yml with upper case extension",
			fileName: "config.YML",
			content:  "test_config_max_entries: 128\ntest_config_eviction: \"lru\"\ntest_config_compress: true\n",
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			resetTestFlags(t)
			require.NoError(t, LoadConfigFile(writeConfigFile(t, testCase.fileName, testCase.content)))
			assert.Equal(t, 128, *testMaxEntries)
			assert.Equal(t, "lru", *testEviction)
			assert.True(t, *testCompress)
		})
	}
}

func TestLoadConfigFile_PreservedFlags(t *testing.T) {
	resetTestFlags(t)
	SetTestFlag(t, "test_config_eviction", "lfu")
	path := writeConfigFile(t, "config.json", `{"test_config_max_entries": 7, "test_config_eviction": "lru"}`)

	require.NoError(t, LoadConfigFile(path, "test_config_eviction"))
	assert.Equal(t, 7, *testMaxEntries)
	assert.Equal(t, "lfu", *testEviction)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	for _, testCase := range []struct {
		name     string
		fileName string
		content  string
		wantCode errors.ErrorCode
	}{
		{name: "unknown flag", fileName: "c.json", content: `{"no_such_flag": 1}`,
			wantCode: errors.CodeInvalidConfig},
		{name: "skipped flag", fileName: "c.json", content: `{"config_file": "other.json"}`,
			wantCode: errors.CodeInvalidConfig},
		{name: "nested object", fileName: "c.yaml", content: "test_config_eviction:\n  policy: lru\n",
			wantCode: errors.CodeInvalidConfig},
		{name: "list", fileName: "c.json", content: `{"test_config_eviction": ["lru"]}`,
			wantCode: errors.CodeInvalidConfig},
		{name: "null", fileName: "c.json", content: `{"test_config_eviction": null}`,
			wantCode: errors.CodeInvalidConfig},
		{name: "bad value", fileName: "c.json", content: `{"test_config_max_entries": "many"}`,
			wantCode: errors.CodeInvalidConfig},
		{name: "malformed json", fileName: "c.json", content: `{`, wantCode: errors.CodeInvalidConfig},
		{name: "malformed yaml", fileName: "c.yaml", content: "a: [", wantCode: errors.CodeInvalidConfig},
		{name: "unsupported extension", fileName: "c.toml", content: "a = 1", wantCode: errors.CodeInvalidConfig},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			resetTestFlags(t)
			err := LoadConfigFile(writeConfigFile(t, testCase.fileName, testCase.content))
			require.Error(t, err)
			assert.Equal(t, testCase.wantCode, errors.GetCode(err))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	})
}

func TestLoadConfigFile_AllOrNothing(t *testing.T) {
	resetTestFlags(t)
	// Flags are set in name order, so the broken max entries value comes last.
	path := writeConfigFile(t, "config.yaml",
		"test_config_compress: true\ntest_config_eviction: lru\ntest_config_max_entries: many\n")

	err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	assert.Contains(t, err.Error(), "test_config_max_entries")

	assert.False(t, *testCompress, "Flags set before the failure are reverted")
	assert.Equal(t, "none", *testEviction)
	assert.Equal(t, 10, *testMaxEntries)
}
