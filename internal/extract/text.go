package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docyard/docfind/internal/errors"
)

// textExtensions are the file types the built-in extractor handles.
// Binary formats (PDF, DOCX, XLSX, PPTX) come from external adapters.
var textExtensions = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

// TextExtractor extracts plain-text and markdown files. The whole file
// becomes a single paragraph-kind unit; paragraph boundaries inside the
// unit are blank lines, which is what the chunker's paragraph tier expects.
type TextExtractor struct{}

// NewTextExtractor creates the built-in plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Supports reports whether ext is a plain-text extension.
func (e *TextExtractor) Supports(ext string) bool {
	_, ok := textExtensions[strings.ToLower(ext)]
	return ok
}

// Extract reads the file and returns one paragraph-kind unit.
func (e *TextExtractor) Extract(path string) ([]Unit, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !e.Supports(ext) {
		return nil, errors.ExtractionError(
			fmt.Sprintf("unsupported file type: %s", ext), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ExtractionError(
			fmt.Sprintf("failed to read %s", path), err)
	}

	if !utf8.Valid(data) {
		return nil, errors.ExtractionError(
			fmt.Sprintf("%s is not valid UTF-8 text", path), nil)
	}

	text := normalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, errors.ExtractionError(
			fmt.Sprintf("%s contains no text", path), nil)
	}

	return []Unit{{
		Index: 0,
		Kind:  UnitKindParagraph,
		Text:  text,
	}}, nil
}

// MediaType returns the media type for a supported extension, or
// "application/octet-stream" for anything else.
func MediaType(ext string) string {
	if mt, ok := textExtensions[strings.ToLower(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// normalizeNewlines converts CRLF and CR line endings to LF so that blank
// line detection behaves identically on all platforms.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
