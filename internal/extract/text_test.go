package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docyard/docfind/internal/errors"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractText(t *testing.T) {
	e := NewTextExtractor()
	path := write(t, "doc.txt", []byte("First paragraph.\n\nSecond paragraph."))

	units, err := e.Extract(path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, uint32(0), units[0].Index)
	assert.Equal(t, UnitKindParagraph, units[0].Kind)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", units[0].Text)
}

func TestExtractNormalizesNewlines(t *testing.T) {
	e := NewTextExtractor()
	path := write(t, "doc.md", []byte("one\r\ntwo\rthree"))

	units, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree", units[0].Text)
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := NewTextExtractor()
	path := write(t, "doc.pdf", []byte("%PDF-1.7"))

	_, err := e.Extract(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExtractFailed, errors.GetCode(err))
}

func TestExtractInvalidUTF8(t *testing.T) {
	e := NewTextExtractor()
	path := write(t, "doc.txt", []byte{0xff, 0xfe, 0x00})

	_, err := e.Extract(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExtractFailed, errors.GetCode(err))
}

func TestExtractEmptyFile(t *testing.T) {
	e := NewTextExtractor()
	path := write(t, "doc.txt", []byte("  \n\t\n"))

	_, err := e.Extract(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExtractFailed, errors.GetCode(err))
}

func TestSupports(t *testing.T) {
	e := NewTextExtractor()
	assert.True(t, e.Supports(".txt"))
	assert.True(t, e.Supports(".MD"))
	assert.True(t, e.Supports(".markdown"))
	assert.False(t, e.Supports(".docx"))
	assert.False(t, e.Supports(""))
}

func TestUnitLabel(t *testing.T) {
	assert.Equal(t, "page 3", Unit{Index: 2, Kind: UnitKindPage}.Label())
	assert.Equal(t, "slide 1", Unit{Index: 0, Kind: UnitKindSlide}.Label())
	assert.Equal(t, "paragraph 1", Unit{Index: 0, Kind: UnitKindParagraph}.Label())
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "text/plain", MediaType(".txt"))
	assert.Equal(t, "text/markdown", MediaType(".md"))
	assert.Equal(t, "application/octet-stream", MediaType(".bin"))
}
