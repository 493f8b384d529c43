package fancy

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the label styles for one output stream.
type Styles struct {
	// Error marks execution failures
	Error lipgloss.Style

	// Warning marks engine stderr output from a successful run
	Warning lipgloss.Style

	// Label marks the captured stream labels under an error
	Label lipgloss.Style
}

// NewStyles builds styles whose color profile is detected from w, so labels
// written to a redirected stream stay plain text.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Error: r.NewStyle().
			Foreground(ColorRed).
			Bold(true),
		Warning: r.NewStyle().
			Foreground(ColorYellow).
			Bold(true),
		Label: r.NewStyle().
			Foreground(ColorGray),
	}
}
