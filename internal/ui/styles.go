// Package ui renders search results and index statistics for the terminal.
// Output is colored only when writing to an interactive terminal and color
// has not been disabled.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette, a single cyan accent with muted support colors.
const (
	colorAccent = "45"  // result ranks, headers
	colorLabel  = "245" // field labels, secondary text
	colorDim    = "238" // separators
	colorScore  = "114" // BM25 scores
)

// Styles holds the render styles.
type Styles struct {
	Header lipgloss.Style
	Rank   lipgloss.Style
	Label  lipgloss.Style
	Score  lipgloss.Style
	Dim    lipgloss.Style
}

// ColorStyles returns the colored style set.
func ColorStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Rank:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorLabel)),
		Score:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorScore)),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
	}
}

// PlainStyles returns an unstyled set for pipes and NO_COLOR.
func PlainStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle(),
		Rank:   lipgloss.NewStyle(),
		Label:  lipgloss.NewStyle(),
		Score:  lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle(),
	}
}

// StylesFor picks styles for the writer: colored for a TTY unless NO_COLOR
// is set, plain otherwise.
func StylesFor(w io.Writer) Styles {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return PlainStyles()
	}
	if !IsTTY(w) {
		return PlainStyles()
	}
	return ColorStyles()
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
