package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestInitLoggingWith(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var out bytes.Buffer
	initLoggingWith(HandlerTypeJSON, LogLevelWarn, &out)
	slog.Info("Dropped below the level.")
	slog.Warn("Kept at the level.", "key", "k1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "Kept at the level.", record["msg"])
	assert.Equal(t, "k1", record["key"])
}

func TestLogWriter(t *testing.T) {
	assert.Equal(t, os.Stderr, logWriter(""))

	logFile := filepath.Join(t.TempDir(), "strata.log")
	writer, ok := logWriter(logFile).(*lumberjack.Logger)
	require.True(t, ok)
	t.Cleanup(func() { _ = writer.Close() })
	assert.Equal(t, logFile, writer.Filename)

	_, err := writer.Write([]byte("line\n"))
	require.NoError(t, err)
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(content))
}
