package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"timelapse/internal/api"
	"timelapse/internal/jobs"
	"timelapse/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	badge string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// renderStatusLine lays out "  Label:   [BADGE] message" with the label
// padded to 20 columns.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[statusInfo]
	if int(kind) >= 0 && int(kind) < len(statusStyles) {
		style = statusStyles[kind]
	}
	line := fmt.Sprintf("  %-20s [%s]", label+":", style.badge)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func stateKind(state jobs.State) statusKind {
	switch state {
	case jobs.StateCompleted:
		return statusOK
	case jobs.StateFailed:
		return statusError
	case jobs.StateProcessing:
		return statusInfo
	default:
		return statusWarn
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	lines := []string{"== " + strings.TrimSpace(title) + " =="}
	lines = append(lines, strings.Repeat("-", len(lines[0])))
	if colorize {
		for i := range lines {
			lines[i] = statusStyles[statusInfo].color + lines[i] + ansiReset
		}
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	return false
}

// checkLines renders local preflight results followed by a summary line.
func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results)+1)
	failed := 0
	for _, result := range results {
		if result.Passed {
			lines = append(lines, renderStatusLine(result.Name, statusOK, result.Detail, colorize))
			continue
		}
		failed++
		detail := strings.TrimSpace(result.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(result.Name, statusError, detail, colorize))
	}
	if failed == 0 {
		return append(lines, renderStatusLine("Summary", statusOK, "all checks passed", colorize))
	}
	return append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d check(s) failed", failed), colorize))
}

// dependencyLines renders the dependency list reported by a running daemon.
func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}
