package diag

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

var (
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	codeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	arrowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	caretStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Formatter renders diagnostics with a source excerpt.
type Formatter struct {
	// Source is the text the locations point into. Without it only the
	// header lines are rendered.
	Source string
	// Color keeps ANSI styling in the output.
	Color bool
	// Context is the number of lines shown around the error line.
	Context int
}

// Format renders one diagnostic.
func (f Formatter) Format(d Diagnostic) string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("error"))
	b.WriteString(codeStyle.Render("[" + d.Kind.Code() + "]"))
	b.WriteString(": ")
	b.WriteString(d.Message())
	b.WriteString("\n")
	b.WriteString(arrowStyle.Render("  --> "))
	b.WriteString(d.Loc.String())
	b.WriteString("\n")

	lines := strings.Split(f.Source, "\n")
	if f.Source != "" && d.Loc.Line >= 1 && d.Loc.Line <= len(lines) {
		first := max(1, d.Loc.Line-f.Context)
		last := min(len(lines), d.Loc.Line+f.Context)
		width := ansi.StringWidth(fmt.Sprint(last))
		blank := strings.Repeat(" ", width)

		b.WriteString(gutterStyle.Render(" "+blank+" |") + "\n")
		for i := first; i <= last; i++ {
			num := fmt.Sprintf("%*d", width, i)
			b.WriteString(gutterStyle.Render(" "+num+" |"))
			b.WriteString(" " + lines[i-1] + "\n")
			if i == d.Loc.Line {
				pad := strings.Repeat(" ", max(0, d.Loc.Column-1))
				b.WriteString(gutterStyle.Render(" "+blank+" |"))
				b.WriteString(" " + pad + caretStyle.Render("^") + "\n")
			}
		}
	}

	out := b.String()
	if !f.Color {
		out = ansi.Strip(out)
	}
	return out
}

// FormatAll renders diagnostics in the given order separated by blank lines.
func (f Formatter) FormatAll(ds []Diagnostic) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = f.Format(d)
	}
	return strings.Join(parts, "\n")
}
