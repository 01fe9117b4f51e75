package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"timelapse/internal/encoder"
	"timelapse/internal/jobs"
	"timelapse/internal/staging"
)

// fakeEncoder replays scripted ffmpeg output and writes a placeholder video.
type fakeEncoder struct {
	mu       sync.Mutex
	lines    []string
	err      error
	panicMsg string
	noOutput bool
	calls    int
	requests []encoder.Request
	ctxErrs  []error
}

func (f *fakeEncoder) Run(ctx context.Context, req encoder.Request, onLine func(string)) error {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	lines := append([]string(nil), f.lines...)
	err := f.err
	panicMsg := f.panicMsg
	noOutput := f.noOutput
	f.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	for _, line := range lines {
		onLine(line)
	}
	if err != nil || noOutput {
		return err
	}
	return os.WriteFile(req.OutputPath, []byte("mp4"), 0o644)
}

func (f *fakeEncoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recorder captures observer callbacks per job.
type recorder struct {
	mu      sync.Mutex
	history map[string][]jobs.Status
}

func newRecorder() *recorder {
	return &recorder{history: make(map[string][]jobs.Status)}
}

func (r *recorder) observe(jobID string, status jobs.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[jobID] = append(r.history[jobID], status)
}

func (r *recorder) statuses(jobID string) []jobs.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobs.Status(nil), r.history[jobID]...)
}

// fakeNotifier records job announcements.
type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]string
}

func (n *fakeNotifier) NotifyJobCompleted(_ context.Context, jobID string, _ int, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, jobID)
	return nil
}

func (n *fakeNotifier) NotifyJobFailed(_ context.Context, jobID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failed == nil {
		n.failed = make(map[string]string)
	}
	n.failed[jobID] = message
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }
func (n *fakeNotifier) Close() error                           { return nil }

func newJobWithFrames(t *testing.T, layout staging.Layout, count int) string {
	t.Helper()
	id, err := layout.Create()
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	for i := 1; i <= count; i++ {
		name := filepath.Join(layout.FramesDir(id), fmt.Sprintf("frame%d.png", i))
		if err := os.WriteFile(name, []byte("png"), 0o644); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	return id
}
