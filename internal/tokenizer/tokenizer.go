// Package tokenizer turns chunk text and queries into index terms. Every
// input is projected twice: a stemmed column for Latin-script matching
// (lowercased, diacritics folded, Porter-stemmed) and a segmented column for
// CJK matching (dictionary-based word segmentation). Indexing and search use
// the same projections, which is what makes matching symmetric.
package tokenizer

import (
	"strings"
	"unicode"

	unicodetokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/go-ego/gse"

	"github.com/docyard/docfind/internal/errors"
)

// minTokenLen drops single-rune noise terms from both columns.
const minTokenLen = 2

// Config controls tokenization behavior.
type Config struct {
	// UseCJKSegmentation enables dictionary segmentation of CJK runs. When
	// disabled, each CJK run becomes a single term, which still allows
	// whole-run matching without a dictionary.
	UseCJKSegmentation bool

	// RemoveStopwords enables stopword filtering on both columns.
	RemoveStopwords bool

	// ExtraEnglish and ExtraChinese extend the built-in stopword lists.
	ExtraEnglish []string
	ExtraChinese []string
}

// Tokenizer produces the two term columns. Safe for concurrent use after
// construction; the diacritic-folding transformer is stateful and therefore
// built per call.
type Tokenizer struct {
	useCJK    bool
	stopwords map[string]struct{}
	seg       gse.Segmenter
}

// New constructs a Tokenizer. The segmentation dictionary is loaded eagerly
// so that the first indexing call does not pay for it.
func New(cfg Config) (*Tokenizer, error) {
	t := &Tokenizer{
		useCJK:    cfg.UseCJKSegmentation,
		stopwords: stopwordSet(cfg.RemoveStopwords, cfg.ExtraEnglish, cfg.ExtraChinese),
	}
	if cfg.UseCJKSegmentation {
		if err := t.seg.LoadDict(); err != nil {
			return nil, errors.InternalError("failed to load segmentation dictionary", err)
		}
	}
	return t, nil
}

// Stemmed returns the stemmed-column terms for text: Unicode word tokens,
// lowercased, diacritics folded, Porter-stemmed, stopwords and short tokens
// dropped. Duplicate terms are preserved; BM25 needs term frequencies.
func (t *Tokenizer) Stemmed(text string) []string {
	stream := unicodetokenizer.NewUnicodeTokenizer().Tokenize([]byte(text))

	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := strings.ToLower(string(tok.Term))
		term = foldDiacritics(term)
		if t.drop(term) {
			continue
		}
		term = porterstemmer.StemString(term)
		if len([]rune(term)) < minTokenLen {
			continue
		}
		out = append(out, term)
	}
	return out
}

// Segmented returns the segmented-column terms for text. CJK runs are cut
// with the dictionary segmenter (or kept whole when segmentation is
// disabled); other alphanumeric runs pass through lowercased so that mixed
// Chinese/English text stays searchable in one column.
func (t *Tokenizer) Segmented(text string) []string {
	var out []string
	for _, run := range splitRuns(text) {
		if !run.cjk {
			term := strings.ToLower(run.text)
			if !t.drop(term) {
				out = append(out, term)
			}
			continue
		}
		if !t.useCJK {
			if !t.drop(run.text) {
				out = append(out, run.text)
			}
			continue
		}
		for _, word := range t.seg.Cut(run.text, true) {
			if !t.drop(word) {
				out = append(out, word)
			}
		}
	}
	return out
}

// drop reports whether term is too short or a stopword.
func (t *Tokenizer) drop(term string) bool {
	if len([]rune(term)) < minTokenLen {
		return true
	}
	if t.stopwords == nil {
		return false
	}
	_, stop := t.stopwords[term]
	return stop
}

// foldDiacritics strips combining marks: "café" becomes "cafe", "naïve"
// becomes "naive". The transformer carries internal state, so a fresh chain
// is built per call.
func foldDiacritics(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return folded
}

// run is a maximal same-script slice of input text.
type run struct {
	text string
	cjk  bool
}

// splitRuns partitions text into CJK runs and non-CJK alphanumeric runs.
// Punctuation and whitespace separate runs and are discarded.
func splitRuns(text string) []run {
	var (
		out   []run
		buf   []rune
		inCJK bool
	)
	flush := func() {
		if len(buf) > 0 {
			out = append(out, run{text: string(buf), cjk: inCJK})
			buf = buf[:0]
		}
	}
	for _, r := range text {
		switch {
		case isCJK(r):
			if !inCJK {
				flush()
				inCJK = true
			}
			buf = append(buf, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if inCJK {
				flush()
				inCJK = false
			}
			buf = append(buf, r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// isCJK reports whether r belongs to a script handled by the segmenter.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
