package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/yuanying/one2html/internal/converter"
)

const (
	colorGreen   = "#A9DC76"
	colorRed     = "#FF6188"
	colorOrange  = "#FC9867"
	colorComment = "#727072"
	colorTitle   = "#AB9DF2"
)

type summaryStyles struct {
	title   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
}

func newSummaryStyles(w io.Writer, noColor bool) summaryStyles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return summaryStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTitle)),
		success: r.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		failure: r.NewStyle().Foreground(lipgloss.Color(colorRed)),
		warning: r.NewStyle().Foreground(lipgloss.Color(colorOrange)),
		dim:     r.NewStyle().Foreground(lipgloss.Color(colorComment)),
	}
}

// printSummary writes the human readable outcome of a run.
func printSummary(w io.Writer, report *converter.Report, noColor bool) {
	s := newSummaryStyles(w, noColor)

	fmt.Fprintln(w, s.title.Render("one2html")+" "+s.dim.Render(report.RunID))
	fmt.Fprintf(w, "  %s %s\n", s.dim.Render("output:"), report.OutputDir)
	fmt.Fprintln(w, "  "+s.success.Render(fmt.Sprintf("%d of %d pages exported", len(report.Succeeded), report.Pages)))
	if report.IndexFile != "" {
		fmt.Fprintf(w, "  %s %s\n", s.dim.Render("index:"), filepath.Join(report.OutputDir, report.IndexFile))
	}
	if n := report.Skipped(); n > 0 {
		fmt.Fprintln(w, "  "+s.warning.Render(fmt.Sprintf("%d pages not attempted", n)))
	}
	if !report.HasFailures() {
		return
	}
	fmt.Fprintln(w, "  "+s.failure.Render(fmt.Sprintf("%d pages failed:", len(report.Failed))))
	for _, f := range report.Failed {
		fmt.Fprintf(w, "    - %s (series %d, page %d): %s\n", f.Title, f.Series, f.Index, f.Error)
	}
}
