package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("document indexed", "name", "report.txt", "chunks", 4)
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "docfind.log"))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "document indexed", entry["msg"])
	assert.Equal(t, "report.txt", entry["name"])
	assert.Equal(t, float64(4), entry["chunks"])
}

func TestSetupRespectsLevel(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.WriteToStderr = false
	cfg.Level = "warn"

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("filtered out")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "docfind.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered out")
	assert.Contains(t, string(data), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("debug"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("info"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("WARNING"))
	assert.Equal(t, slog.LevelError, LevelFromString("error"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("bogus"))
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docfind.log")

	// 1 MB cap; three writes of ~600 KB force two rotations.
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)

	payload := []byte(strings.Repeat("x", 600*1024))
	for i := 0; i < 3; i++ {
		_, err := w.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".1")
	require.NoError(t, err)
}
