// Package extract defines the text extraction contract consumed by the
// indexing engine. Format-specific extraction (PDF, DOCX, XLSX, PPTX) is an
// external collaborator's job; an extractor only has to yield plain text
// plus logical unit boundaries, deterministically for identical file bytes.
package extract

import (
	"fmt"
)

// UnitKind identifies the logical unit a text span came from.
type UnitKind string

const (
	UnitKindPage      UnitKind = "page"
	UnitKindSlide     UnitKind = "slide"
	UnitKindSheet     UnitKind = "sheet"
	UnitKindParagraph UnitKind = "paragraph"
)

// Unit is one logical unit of extracted text. Units are ordered and their
// boundaries are hard splits for chunking: no chunk ever crosses a unit.
type Unit struct {
	// Index is the unit's position within the document (0-based).
	Index uint32

	// Kind is the unit type (page, slide, sheet, paragraph).
	Kind UnitKind

	// Text is the extracted plain text, paragraph-delimited by blank lines.
	Text string
}

// Label returns the human-readable unit label used for citations,
// e.g. "page 3" or "slide 1".
func (u Unit) Label() string {
	return fmt.Sprintf("%s %d", u.Kind, u.Index+1)
}

// Extractor converts a file into ordered text units.
// Extract must be deterministic for identical file bytes. Failures are
// surfaced as ExtractionErrors and are never retried by the engine.
type Extractor interface {
	// Extract reads the file at path and returns its text units.
	Extract(path string) ([]Unit, error)

	// Supports reports whether this extractor handles the file extension
	// (lowercase, including the leading dot).
	Supports(ext string) bool
}
