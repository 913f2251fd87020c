package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/task"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func (u *ui) status(s task.TaskStatus) string {
	label := fmt.Sprintf("%-10s", s)
	switch s {
	case task.TaskStatusCompleted:
		return u.ok(label)
	case task.TaskStatusFailed:
		return u.err(label)
	case task.TaskStatusGenerating:
		return u.info(label)
	default:
		return u.dim(label)
	}
}

// printSummary writes one line per task followed by the status totals.
func printSummary(w io.Writer, u *ui, snap task.Snapshot) {
	fmt.Fprintln(w, u.title("Tasks"))
	for _, t := range snap.Tasks {
		line := fmt.Sprintf("  %s %s", u.status(t.Status), t.Label)
		if d := t.Duration(); d > 0 {
			line += " " + u.dim(d.Round(time.Second).String())
		}
		fmt.Fprintln(w, line)
		if t.Error != "" {
			fmt.Fprintf(w, "    %s\n", u.err(t.Error))
		}
	}
	fmt.Fprintf(w, "%s %d completed, %d failed\n",
		u.info("[INFO]"),
		snap.Counts[task.TaskStatusCompleted],
		snap.Counts[task.TaskStatusFailed])
}

func printBrandReport(w io.Writer, u *ui, report *domain.BrandAdReport) {
	fmt.Fprintln(w, u.title(report.BrandName))
	fmt.Fprintf(w, "  %s %s\n", u.dim("website"), report.WebsiteURL)
	if report.AdCounts == nil {
		fmt.Fprintln(w, u.warn("  no ads reported"))
		return
	}
	fmt.Fprintf(w, "  %s %s\n", u.dim("total   "), countText(report.AdCounts.Total))
	fmt.Fprintf(w, "  %s %s\n", u.dim("active  "), countText(report.AdCounts.Active))
	fmt.Fprintf(w, "  %s %s\n", u.dim("inactive"), countText(report.AdCounts.Inactive))
}

func countText(n *int) string {
	if n == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *n)
}
