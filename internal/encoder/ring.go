package encoder

import "strings"

// diagnosticRing keeps the most recent lines of encoder output.
type diagnosticRing struct {
	lines []string
	next  int
	full  bool
}

func newDiagnosticRing(size int) *diagnosticRing {
	return &diagnosticRing{lines: make([]string, size)}
}

func (r *diagnosticRing) add(line string) {
	if len(r.lines) == 0 {
		return
	}
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

func (r *diagnosticRing) String() string {
	if !r.full {
		return strings.Join(r.lines[:r.next], "\n")
	}
	ordered := make([]string, 0, len(r.lines))
	ordered = append(ordered, r.lines[r.next:]...)
	ordered = append(ordered, r.lines[:r.next]...)
	return strings.Join(ordered, "\n")
}
