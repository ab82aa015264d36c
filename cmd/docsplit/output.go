package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/split"
)

var (
	// titleStyle for document and family names
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for the run summary
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Width(32)
)

// formatJob prints one line per document plus its failure reasons.
func formatJob(w io.Writer, job *pipeline.Job) {
	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗"), titleStyle.Render(snap.Filename),
			dimStyle.Render("failed in "+snap.Phase))
		for _, e := range snap.Progress.Errors {
			fmt.Fprintf(w, "    %s\n", errorStyle.Render(e))
		}
		return
	}
	p := snap.Progress
	fmt.Fprintf(w, "%s %s %s %d  %s %d  %s %d  %s %d\n",
		successStyle.Render("✓"), titleStyle.Render(snap.Filename),
		dimStyle.Render("pages"), p.Pages,
		dimStyle.Render("headings"), p.Headings,
		dimStyle.Render("fragments"), p.Fragments,
		dimStyle.Render("footers"), p.FootersRemoved)
	if res := job.Result(); res != nil {
		formatPlan(w, res.Plan)
	}
}

// formatPlan prints the fragments of a plan with their page ranges.
func formatPlan(w io.Writer, plan *split.Plan) {
	for _, e := range plan.NonEmpty() {
		pages := fmt.Sprintf("p%d-%d", e.Start, e.End)
		if e.Start == e.End {
			pages = fmt.Sprintf("p%d", e.Start)
		}
		fmt.Fprintf(w, "  %s %s\n", idStyle.Render(e.ID), dimStyle.Render(pages))
	}
}

func formatSummary(w io.Writer, total, failed int, out string, elapsed time.Duration) {
	status := successStyle.Render("OK")
	if failed > 0 {
		status = errorStyle.Render(fmt.Sprintf("%d FAILED", failed))
	}
	lines := []string{
		titleStyle.Render("Split Complete"),
		fmt.Sprintf("%s %d  %s %.1fs  %s",
			dimStyle.Render("Documents:"), total,
			dimStyle.Render("Took:"), elapsed.Seconds(),
			status),
		fmt.Sprintf("%s %s", dimStyle.Render("Output:"), out),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
