// Strata uses flags and a single optional config file for configuration.
// Flags are the source of truth; a config file only holds values for already defined flags, keyed by flag name.
// Config files are either JSON (.json) or YAML (.yaml, .yml) objects with scalar values, e.g.
//
//	l1_max_entries: 128
//	l2_eviction: lru
//	compress: true
//
// Flags given on the command line take precedence over the config file.

package config

import (
	"flag"
	"log/slog"
	"os"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"
)

var configFilePath = flag.String("config_file", "", "Path to a .json, .yaml or .yml file holding flag values.")

// InitFlags parses the command line flags and then applies the config file given by -config_file, if any.
// It should be called after defining all flags and before using them. A broken config file is logged and skipped,
// leaving flags to their command line or default values.
func InitFlags() {
	flag.Parse()

	if *configFilePath == "" {
		slog.Debug("Config file not specified. Skipping config initialization.")
		return
	}
	var setOnCommandLine []string
	flag.Visit(func(f *flag.Flag) { setOnCommandLine = append(setOnCommandLine, f.Name) })
	if err := LoadConfigFile(*configFilePath, setOnCommandLine...); err != nil {
		slog.Error("Failed to apply config file.", "path", *configFilePath, "error", err)
	}
}

// LoadConfigFile sets the flags listed in the given config file. Flags named in `preserved` (e.g., those given on the
// command line) keep their current value.
func LoadConfigFile(path string, preserved ...string) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return errors.WithContext(errors.Wrap(err, errors.CodeNotFound, "config file does not exist"), "path", path)
	}
	if err != nil {
		return errors.WithContext(errors.Wrap(err, errors.CodeInternal, "failed to read config file"), "path", path)
	}
	values, err := parseConfigFile(path, content)
	if err != nil {
		return errors.WithContext(err, "path", path)
	}
	return setConfigFlags(values, preserved)
}

// SetTestFlag sets a flag to a specific value for the duration of the test.
func SetTestFlag(t *testing.T, name, value string) {
	t.Helper()
	flagHolder := flag.Lookup(name)
	require.NotNil(t, flagHolder, "Flag %s not found", name)
	if flagHolder != nil { // Revert the flag value back to its original when the test is done.
		prevValue := flagHolder.Value.String()
		t.Cleanup(func() { require.NoError(t, flag.Set(name, prevValue)) })
	}
	require.NoError(t, flag.Set(name, value))
}
