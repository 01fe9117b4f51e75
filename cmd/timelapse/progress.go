package main

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"timelapse/internal/jobs"
)

// stageLabel title-cases a stage name. Casers keep state, so each call gets
// its own.
func stageLabel(stage string) string {
	if stage == "" {
		return "Pending"
	}
	return cases.Title(language.English).String(stage)
}

// describeView renders one job status as a single human line.
func describeView(view jobs.StatusView) string {
	switch view.Status {
	case jobs.StateFailed:
		return "Failed: " + view.Error
	case jobs.StateCompleted:
		return "Completed"
	case jobs.StateProcessing:
		line := stageLabel(view.Stage)
		if view.Progress != nil {
			line = fmt.Sprintf("%s %d%%", line, *view.Progress)
		}
		if view.CurrentFrame != nil && view.TotalFrames != nil && *view.TotalFrames > 0 {
			line = fmt.Sprintf("%s (frame %d/%d)", line, *view.CurrentFrame, *view.TotalFrames)
		}
		return line
	default:
		return stageLabel("")
	}
}

func formatPercent(view jobs.StatusView) string {
	if view.Progress == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *view.Progress)
}

func formatFrames(view jobs.StatusView) string {
	if view.CurrentFrame == nil || view.TotalFrames == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", *view.CurrentFrame, *view.TotalFrames)
}

// progressPrinter writes a line whenever the stage or percent changes.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) observe(_ string, status jobs.Status) {
	view := jobs.View(status)
	key := fmt.Sprintf("%s/%s/%s", view.Status, view.Stage, formatPercent(view))

	p.mu.Lock()
	defer p.mu.Unlock()
	if key == p.last {
		return
	}
	p.last = key
	fmt.Fprintln(p.out, describeView(view))
}
