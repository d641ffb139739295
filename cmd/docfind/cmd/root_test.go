package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with args against an isolated data directory.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func setupDataDir(t *testing.T) {
	t.Helper()
	t.Setenv("DOCFIND_DATA_DIR", t.TempDir())
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docfind")

	out, err = runCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = runCommand(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestIndexAndSearchCommands(t *testing.T) {
	setupDataDir(t)
	doc := writeDoc(t, "report.txt", "Quarterly revenue grew strongly.\n\nCosts stayed flat.")

	out, err := runCommand(t, "index", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "report.txt: indexed")

	// Indexing the same content again is a no-op.
	out, err = runCommand(t, "index", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "report.txt: up to date")

	out, err = runCommand(t, "search", doc, "revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "revenue")
	assert.Contains(t, out, "report.txt")
}

func TestSearchCommandJSON(t *testing.T) {
	setupDataDir(t)
	doc := writeDoc(t, "report.txt", "The keyword lives here.")

	out, err := runCommand(t, "search", doc, "keyword", "--json")
	require.NoError(t, err)

	var hits []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "report.txt", hits[0]["document"])
}

func TestSearchCommandByHash(t *testing.T) {
	setupDataDir(t)
	doc := writeDoc(t, "report.txt", "The keyword lives here.")

	out, err := runCommand(t, "index", doc, "--json")
	require.NoError(t, err)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	hash := reports[0]["hash"].(string)
	require.Len(t, hash, 64)

	// The hash stands in for the file path.
	out, err = runCommand(t, "search", hash, "keyword", "--json")
	require.NoError(t, err)
	var hits []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, hash, hits[0]["hash"])
}

func TestStatsCommand(t *testing.T) {
	setupDataDir(t)
	doc := writeDoc(t, "report.txt", "Some content for statistics.")

	_, err := runCommand(t, "index", doc)
	require.NoError(t, err)

	out, err := runCommand(t, "stats", "--json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(1), report["documents"])
	assert.Equal(t, float64(len("Some content for statistics.")), report["document_bytes"])
}

func TestCleanupCommand(t *testing.T) {
	setupDataDir(t)
	doc := writeDoc(t, "report.txt", "Content that is fresh.")

	_, err := runCommand(t, "index", doc)
	require.NoError(t, err)

	out, err := runCommand(t, "cleanup", "--older-than", "1h", "--json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(0), report["removed"])
}

func TestIndexCommandMissingFile(t *testing.T) {
	setupDataDir(t)

	_, err := runCommand(t, "index", filepath.Join(t.TempDir(), "ghost.txt"))
	require.Error(t, err)
}
