package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docyard/docfind/internal/store"
)

func TestHitsRendering(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Hits("revenue", []store.Hit{
		{DocName: "report.txt", UnitLabel: "page 2", Score: 1.234567, Text: "Revenue grew."},
		{DocName: "report.txt", UnitLabel: "page 5", Score: 0.5, Text: "Revenue context."},
	})

	out := buf.String()
	assert.Contains(t, out, "2 result(s) for \"revenue\"")
	assert.Contains(t, out, "1. report.txt page 2 (score 1.235)")
	assert.Contains(t, out, "2. report.txt page 5 (score 0.500)")
	assert.Contains(t, out, "Revenue grew.")
}

func TestHitsEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Hits("nothing", nil)
	assert.Equal(t, "no results for \"nothing\"\n", buf.String())
}

func TestStatsRendering(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Stats(&store.Stats{
		DocumentCount: 3,
		ChunkCount:    42,
		TokenCount:    1000,
		TermCount:     250,
		DocumentBytes: 3072,
		SizeBytes:     2048,
		OldestIndexed: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		NewestIndexed: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "documents: 3")
	assert.Contains(t, out, "chunks: 42")
	assert.Contains(t, out, "document bytes: 3.0 KiB")
	assert.Contains(t, out, "size on disk: 2.0 KiB")
	assert.Contains(t, out, "2026-08-01")
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	s := snippet(long)
	assert.Equal(t, snippetMax+3, len([]rune(s)))
	assert.True(t, strings.HasSuffix(s, "..."))

	assert.Equal(t, "a b c", snippet("a\n  b\tc"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}

func TestBufferIsNotTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
