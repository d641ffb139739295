package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/docyard/docfind/internal/store"
)

// snippetMax caps how much chunk text a result line shows.
const snippetMax = 200

// Printer renders engine output to a writer.
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter creates a printer with styles chosen for the writer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: StylesFor(w)}
}

// Hits renders ranked search results.
func (p *Printer) Hits(query string, hits []store.Hit) {
	if len(hits) == 0 {
		fmt.Fprintf(p.w, "no results for %q\n", query)
		return
	}

	fmt.Fprintln(p.w, p.styles.Header.Render(fmt.Sprintf("%d result(s) for %q", len(hits), query)))
	for i, h := range hits {
		fmt.Fprintf(p.w, "\n%s %s %s %s\n",
			p.styles.Rank.Render(fmt.Sprintf("%d.", i+1)),
			h.DocName,
			p.styles.Label.Render(h.UnitLabel),
			p.styles.Score.Render(fmt.Sprintf("(score %.3f)", h.Score)))
		fmt.Fprintf(p.w, "   %s\n", snippet(h.Text))
	}
}

// Stats renders store statistics.
func (p *Printer) Stats(st *store.Stats) {
	fmt.Fprintln(p.w, p.styles.Header.Render("index statistics"))
	p.field("documents", fmt.Sprintf("%d", st.DocumentCount))
	p.field("chunks", fmt.Sprintf("%d", st.ChunkCount))
	p.field("tokens", fmt.Sprintf("%d", st.TokenCount))
	p.field("distinct terms", fmt.Sprintf("%d", st.TermCount))
	p.field("document bytes", formatBytes(st.DocumentBytes))
	p.field("size on disk", formatBytes(st.SizeBytes))
	if !st.OldestIndexed.IsZero() {
		p.field("oldest entry", st.OldestIndexed.Format("2006-01-02 15:04:05 MST"))
		p.field("newest entry", st.NewestIndexed.Format("2006-01-02 15:04:05 MST"))
	}
}

func (p *Printer) field(label, value string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.styles.Label.Render(label+":"), value)
}

// snippet flattens whitespace and truncates on a rune boundary.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= snippetMax {
		return flat
	}
	return string(runes[:snippetMax]) + "..."
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
