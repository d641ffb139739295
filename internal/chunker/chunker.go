// Package chunker splits extracted text units into bounded, overlapping
// chunks using a tiered strategy: paragraphs that fit are kept verbatim,
// oversized paragraphs are split on sentence boundaries and greedily packed,
// and a single oversized sentence is windowed into fixed-size slices with
// overlap. Chunking is deterministic for identical input and configuration.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/docyard/docfind/internal/errors"
)

// Config controls chunk sizing. All sizes are in characters (runes), so CJK
// text is measured the same way as Latin text.
type Config struct {
	// MaxSize is the chunk size ceiling. Only a merged trailing remainder
	// may exceed it.
	MaxSize int

	// MinSize is the chunk size floor. A chunk shorter than this is merged
	// into a neighbor unless it is the only chunk produced for the unit.
	MinSize int

	// Overlap is the number of characters shared between consecutive
	// fixed-size slices of an oversized sentence.
	Overlap int

	// Terminators is the sentence-ending rune set, e.g. ".!?。！？".
	Terminators string
}

// Chunker implements the tiered splitting strategy.
type Chunker struct {
	maxSize     int
	minSize     int
	overlap     int
	terminators map[rune]struct{}
}

// Span is one chunk of a unit's text. Offset is the rune offset of the span
// within the owning unit, kept for citation and snippet purposes.
type Span struct {
	Text   string
	Offset int
}

// New creates a Chunker. Invalid size combinations fail fast here rather
// than surfacing mid-index.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxSize <= 0 {
		return nil, errors.ConfigError(
			fmt.Sprintf("chunk max size must be positive, got %d", cfg.MaxSize), nil)
	}
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return nil, errors.ConfigError(
			fmt.Sprintf("chunk min size (%d) must be in [0, max size %d]", cfg.MinSize, cfg.MaxSize), nil)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxSize {
		return nil, errors.ConfigError(
			fmt.Sprintf("chunk overlap (%d) must be in [0, max size)", cfg.Overlap), nil)
	}
	if cfg.Terminators == "" {
		return nil, errors.ConfigError("sentence terminator set must not be empty", nil)
	}

	terms := make(map[rune]struct{}, len(cfg.Terminators))
	for _, r := range cfg.Terminators {
		terms[r] = struct{}{}
	}

	return &Chunker{
		maxSize:     cfg.MaxSize,
		minSize:     cfg.MinSize,
		overlap:     cfg.Overlap,
		terminators: terms,
	}, nil
}

// rng is a half-open rune range [start, end) into the unit text.
type rng struct {
	start, end int
}

func (r rng) len() int { return r.end - r.start }

// SplitUnit splits one unit's text into ordered spans. Unit boundaries are
// hard splits: callers invoke SplitUnit once per unit, so no span can cross
// a page/slide/sheet boundary.
func (c *Chunker) SplitUnit(text string) []Span {
	runes := []rune(text)

	var parts []rng
	for _, para := range paragraphs(runes) {
		if para.len() == 0 {
			continue
		}
		if para.len() <= c.maxSize {
			// Paragraph tier: fits verbatim.
			parts = append(parts, para)
			continue
		}
		parts = append(parts, c.splitParagraph(runes, para)...)
	}

	parts = c.mergeFloor(parts)

	spans := make([]Span, 0, len(parts))
	for _, p := range parts {
		spans = append(spans, Span{
			Text:   string(runes[p.start:p.end]),
			Offset: p.start,
		})
	}
	return spans
}

// splitParagraph handles the sentence tier: sentences are greedily packed
// into chunks up to maxSize; a single sentence that alone exceeds maxSize
// falls through to the fixed-size window tier.
func (c *Chunker) splitParagraph(runes []rune, para rng) []rng {
	var out []rng
	pack := rng{-1, -1}

	flush := func() {
		if pack.start >= 0 {
			out = append(out, pack)
			pack = rng{-1, -1}
		}
	}

	for _, sent := range c.sentences(runes, para) {
		if sent.len() > c.maxSize {
			// Fixed-size tier for the oversized sentence.
			flush()
			out = append(out, c.window(sent)...)
			continue
		}
		if pack.start < 0 {
			pack = sent
			continue
		}
		if sent.end-pack.start <= c.maxSize {
			pack.end = sent.end
			continue
		}
		flush()
		pack = sent
	}
	flush()
	return out
}

// window slices an oversized sentence into fixed-size pieces with overlap.
// The overlap guarantees no token spanning a slice boundary is lost from
// both neighbors.
func (c *Chunker) window(sent rng) []rng {
	var out []rng
	step := c.maxSize - c.overlap
	for start := sent.start; ; start += step {
		end := start + c.maxSize
		if end >= sent.end {
			out = append(out, rng{start, sent.end})
			return out
		}
		out = append(out, rng{start, end})
	}
}

// sentences splits a paragraph range on sentence-ending punctuation. A run
// of consecutive terminators ("?!", "。。") stays attached to its sentence.
func (c *Chunker) sentences(runes []rune, para rng) []rng {
	var out []rng
	i := para.start
	for i < para.end {
		for i < para.end && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= para.end {
			break
		}
		j := i
		for j < para.end {
			if _, ok := c.terminators[runes[j]]; ok {
				j++
				for j < para.end {
					if _, term := c.terminators[runes[j]]; !term {
						break
					}
					j++
				}
				break
			}
			j++
		}
		out = append(out, rng{i, j})
		i = j
	}
	return out
}

// mergeFloor enforces the size floor: a chunk shorter than minSize is merged
// into its predecessor (the leading chunk merges forward instead), unless it
// is the only chunk. Merging slices the original text between the two
// ranges, so offsets stay valid and window overlap is not duplicated.
func (c *Chunker) mergeFloor(parts []rng) []rng {
	if len(parts) < 2 || c.minSize == 0 {
		return parts
	}

	out := parts[:1]
	for _, p := range parts[1:] {
		if p.len() < c.minSize {
			prev := &out[len(out)-1]
			prev.end = p.end
			continue
		}
		out = append(out, p)
	}

	if len(out) > 1 && out[0].len() < c.minSize {
		out[1].start = out[0].start
		out = out[1:]
	}
	return out
}

// paragraphs splits the unit text on blank-line boundaries. A line
// containing only whitespace separates paragraphs. Returned ranges are
// trimmed of surrounding whitespace.
func paragraphs(runes []rune) []rng {
	var out []rng
	start := -1
	lineStart := 0

	flush := func(end int) {
		if start < 0 {
			return
		}
		p := trim(runes, rng{start, end})
		if p.len() > 0 {
			out = append(out, p)
		}
		start = -1
	}

	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		blank := isBlank(runes[lineStart:i])
		if blank {
			flush(lineStart)
		} else if start < 0 {
			start = lineStart
		}
		lineStart = i + 1
	}
	flush(len(runes))
	return out
}

func isBlank(line []rune) bool {
	for _, r := range line {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func trim(runes []rune, r rng) rng {
	for r.start < r.end && unicode.IsSpace(runes[r.start]) {
		r.start++
	}
	for r.end > r.start && unicode.IsSpace(runes[r.end-1]) {
		r.end--
	}
	return r
}
