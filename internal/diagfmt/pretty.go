// Package diagfmt renders diagnostic bags for the CLI: a styled
// human-readable listing and a line-oriented JSON form for tooling.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"lumen/internal/diag"
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	Max       int // 0 prints everything
}

var (
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Pretty writes one line per diagnostic, plus indented note lines. The bag is
// expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	items := bag.Items()
	shown := len(items)
	if opts.Max > 0 && shown > opts.Max {
		shown = opts.Max
	}
	for _, d := range items[:shown] {
		sev := d.Severity.String()
		code := d.Code.String()
		loc := d.Primary.String()
		if opts.Color {
			sev = severityStyle(d.Severity).Render(sev)
			loc = dimStyle.Render(loc)
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sev, code, d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			note := fmt.Sprintf("  note: %s: %s", n.Span, n.Msg)
			if opts.Color {
				note = dimStyle.Render(note)
			}
			fmt.Fprintln(w, note)
		}
	}
	if hidden := len(items) - shown; hidden > 0 {
		fmt.Fprintf(w, "... and %d more\n", hidden)
	}
}

// Summary writes the closing error/warning tally.
func Summary(w io.Writer, bag *diag.Bag, color bool) {
	errs := bag.ErrorCount()
	warns := 0
	for _, d := range bag.Items() {
		if d.Severity == diag.SevWarning {
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return
	}
	line := fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
	if color {
		if errs > 0 {
			line = errStyle.Render(line)
		} else {
			line = warnStyle.Render(line)
		}
	}
	fmt.Fprintln(w, line)
}

func severityStyle(s diag.Severity) lipgloss.Style {
	switch s {
	case diag.SevError:
		return errStyle
	case diag.SevWarning:
		return warnStyle
	}
	return infoStyle
}
