package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"timelapse/internal/encoder"
	"timelapse/internal/jobs"
	"timelapse/internal/metrics"
	"timelapse/internal/services"
	"timelapse/internal/staging"
	"timelapse/internal/workflow"
)

func newManager(t *testing.T, enc workflow.Encoder, opts ...workflow.Option) (*workflow.Manager, staging.Layout, *jobs.Store) {
	t.Helper()
	layout := staging.New(t.TempDir())
	store := jobs.NewStore()
	return workflow.NewManager(layout, store, enc, opts...), layout, store
}

func TestSubmitRunsToCompletion(t *testing.T) {
	enc := &fakeEncoder{lines: []string{"frame=10", "fps=0.0", "frame=25", "frame=25", "frame=50", "progress=end"}}
	rec := newRecorder()
	notifier := &fakeNotifier{}
	manager, layout, store := newManager(t, enc,
		workflow.WithObserver(rec.observe),
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(metrics.New()),
	)
	id := newJobWithFrames(t, layout, 50)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10, Rotation: 90}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	if got := store.Get(id); got.State != jobs.StateCompleted {
		t.Fatalf("unexpected final state: %#v", got)
	}
	view := jobs.View(store.Get(id))
	if view.Progress == nil || *view.Progress != 100 || view.Stage != "complete" {
		t.Fatalf("unexpected completed view: %#v", view)
	}

	history := rec.statuses(id)
	if len(history) < 4 {
		t.Fatalf("expected several status writes, got %d", len(history))
	}
	if first := history[0]; first.State != jobs.StateProcessing || first.Progress != nil {
		t.Fatalf("expected Processing(None) first, got %#v", first)
	}
	if second := history[1]; second.Progress == nil || second.Progress.Stage != jobs.StagePreparing {
		t.Fatalf("expected preparing write second, got %#v", second)
	}

	var lastPercent uint8
	var sawFinalizing bool
	for _, status := range history[1 : len(history)-1] {
		p := status.Progress
		if p.Percent < lastPercent {
			t.Fatalf("percent decreased: %d after %d", p.Percent, lastPercent)
		}
		if p.Percent > 99 {
			t.Fatalf("percent reached %d before completion", p.Percent)
		}
		lastPercent = p.Percent
		if p.Stage == jobs.StageFinalizing {
			sawFinalizing = true
			if p.CurrentFrame != 50 || p.TotalFrames != 50 {
				t.Fatalf("unexpected finalizing progress: %#v", p)
			}
		}
	}
	if !sawFinalizing {
		t.Fatal("expected a finalizing write before completion")
	}
	if last := history[len(history)-1]; last.State != jobs.StateCompleted {
		t.Fatalf("expected completed last, got %#v", last)
	}

	if len(enc.requests) != 1 || enc.requests[0].Filter != "transpose=1" {
		t.Fatalf("unexpected encoder requests: %#v", enc.requests)
	}
	if got := enc.requests[0].ManifestPath; got != layout.ManifestPath(id) {
		t.Fatalf("unexpected manifest path: got %q want %q", got, layout.ManifestPath(id))
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != id {
		t.Fatalf("expected completion notification, got %v", notifier.completed)
	}
}

func TestPercentSequenceForRepeatedFrames(t *testing.T) {
	enc := &fakeEncoder{lines: []string{"frame=10", "frame=25", "frame=25", "frame=50"}}
	rec := newRecorder()
	manager, layout, _ := newManager(t, enc, workflow.WithObserver(rec.observe))
	id := newJobWithFrames(t, layout, 50)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 24}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	var encoding []uint8
	for _, status := range rec.statuses(id) {
		if status.Progress != nil && status.Progress.Stage == jobs.StageEncoding {
			encoding = append(encoding, status.Progress.Percent)
		}
	}
	want := []uint8{0, 20, 50, 50, 99}
	if fmt.Sprint(encoding) != fmt.Sprint(want) {
		t.Fatalf("unexpected encoding percents: got %v want %v", encoding, want)
	}
}

func TestEmptyManifestFailsWithoutSpawning(t *testing.T) {
	enc := &fakeEncoder{}
	notifier := &fakeNotifier{}
	manager, layout, store := newManager(t, enc, workflow.WithNotifier(notifier))
	id := newJobWithFrames(t, layout, 0)
	if err := os.WriteFile(filepath.Join(layout.FramesDir(id), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	status := store.Get(id)
	if status.State != jobs.StateFailed || !strings.Contains(status.Error, "no image files found") {
		t.Fatalf("unexpected status: %#v", status)
	}
	if enc.callCount() != 0 {
		t.Fatalf("expected encoder not to run, got %d calls", enc.callCount())
	}
	if notifier.failed[id] != status.Error {
		t.Fatalf("expected failure notification with stored message, got %q", notifier.failed[id])
	}
}

func TestEncoderFailureIsTruncated(t *testing.T) {
	enc := &fakeEncoder{err: &encoder.Failure{ExitCode: 1, Diagnostics: strings.Repeat("d", 600)}}
	manager, layout, store := newManager(t, enc)
	id := newJobWithFrames(t, layout, 3)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	status := store.Get(id)
	if status.State != jobs.StateFailed {
		t.Fatalf("unexpected state: %#v", status)
	}
	if n := len([]rune(status.Error)); n != 503 || !strings.HasSuffix(status.Error, "...") {
		t.Fatalf("expected truncated message, got %d characters", n)
	}
	if !strings.HasPrefix(status.Error, "ffmpeg exited with status 1") {
		t.Fatalf("unexpected message prefix: %q", status.Error[:40])
	}
}

func TestFlushFailureFollowsFinalizing(t *testing.T) {
	enc := &fakeEncoder{lines: []string{"frame=2"}, noOutput: true}
	rec := newRecorder()
	manager, layout, store := newManager(t, enc, workflow.WithObserver(rec.observe))
	id := newJobWithFrames(t, layout, 2)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	status := store.Get(id)
	if status.State != jobs.StateFailed || !strings.Contains(status.Error, "open output") {
		t.Fatalf("unexpected status: %#v", status)
	}

	var stages []string
	for _, s := range rec.statuses(id) {
		switch {
		case s.State == jobs.StateFailed:
			stages = append(stages, "failed")
		case s.Progress != nil:
			stages = append(stages, string(s.Progress.Stage))
		}
	}
	want := []string{"preparing", "encoding", "encoding", "finalizing", "failed"}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected stage order: got %v want %v", stages, want)
	}
}

func TestPanicIsRecordedAsFailure(t *testing.T) {
	enc := &fakeEncoder{panicMsg: "boom"}
	manager, layout, store := newManager(t, enc)
	id := newJobWithFrames(t, layout, 2)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()

	if status := store.Get(id); status.State != jobs.StateFailed || !strings.Contains(status.Error, "boom") {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestSubmitValidation(t *testing.T) {
	manager, layout, store := newManager(t, &fakeEncoder{})
	id := newJobWithFrames(t, layout, 1)

	cases := []struct {
		name   string
		req    workflow.Request
		marker error
	}{
		{"rotation", workflow.Request{JobID: id, FPS: 10, Rotation: 45}, services.ErrValidation},
		{"fps low", workflow.Request{JobID: id, FPS: 0}, services.ErrValidation},
		{"fps high", workflow.Request{JobID: id, FPS: 61}, services.ErrValidation},
		{"bad id", workflow.Request{JobID: "../x", FPS: 10}, services.ErrValidation},
		{"unknown job", workflow.Request{JobID: uuid.NewString(), FPS: 10}, services.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := manager.Submit(context.Background(), tc.req)
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			if store.Known(tc.req.JobID) {
				t.Fatal("validation failure must not be recorded")
			}
		})
	}

	for _, fps := range []int{1, 60} {
		if err := manager.Validate(workflow.Request{JobID: id, FPS: fps, Rotation: 270}); err != nil {
			t.Fatalf("expected fps %d to be accepted: %v", fps, err)
		}
	}
}

func TestResubmitIsConflict(t *testing.T) {
	manager, layout, store := newManager(t, &fakeEncoder{})
	id := newJobWithFrames(t, layout, 1)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 5}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	manager.Wait()
	err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 5})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if store.Get(id).State != jobs.StateCompleted {
		t.Fatal("terminal state must not change on resubmit")
	}
}

// gatedEncoder holds every run open until release is closed.
type gatedEncoder struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedEncoder) Run(_ context.Context, req encoder.Request, _ func(string)) error {
	g.started <- struct{}{}
	<-g.release
	return os.WriteFile(req.OutputPath, []byte("mp4"), 0o644)
}

func TestRemoveRefusesProcessingJob(t *testing.T) {
	enc := &gatedEncoder{started: make(chan struct{}, 1), release: make(chan struct{})}
	manager, layout, store := newManager(t, enc)
	id := newJobWithFrames(t, layout, 2)

	if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-enc.started
	if err := manager.Remove(id); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict while processing, got %v", err)
	}
	if !layout.Exists(id) {
		t.Fatal("frames removed from a processing job")
	}

	close(enc.release)
	manager.Wait()
	if err := manager.Remove(id); err != nil {
		t.Fatalf("Remove after completion: %v", err)
	}
	if layout.Exists(id) || store.Known(id) {
		t.Fatal("expected job directory and status to be gone")
	}
	err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestConcurrentRemoveAndSubmit(t *testing.T) {
	rec := newRecorder()
	manager, layout, _ := newManager(t, &fakeEncoder{}, workflow.WithObserver(rec.observe))

	for i := 0; i < 50; i++ {
		id := newJobWithFrames(t, layout, 2)
		var submitErr, removeErr error
		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			submitErr = manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10})
		}()
		go func() {
			defer wg.Done()
			<-start
			removeErr = manager.Remove(id)
		}()
		close(start)
		wg.Wait()
		manager.Wait()

		if submitErr != nil && !errors.Is(submitErr, services.ErrNotFound) {
			t.Fatalf("unexpected submit error: %v", submitErr)
		}
		if removeErr != nil && !errors.Is(removeErr, services.ErrConflict) {
			t.Fatalf("unexpected remove error: %v", removeErr)
		}
		for _, status := range rec.statuses(id) {
			if status.State == jobs.StateFailed {
				t.Fatalf("admitted job lost its frames: %q", status.Error)
			}
		}
	}
}

func TestJobOutlivesRequestContext(t *testing.T) {
	enc := &fakeEncoder{lines: []string{"frame=1"}}
	manager, layout, store := newManager(t, enc)
	id := newJobWithFrames(t, layout, 2)

	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.Submit(ctx, workflow.Request{JobID: id, FPS: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	manager.Wait()

	if store.Get(id).State != jobs.StateCompleted {
		t.Fatalf("unexpected state: %#v", store.Get(id))
	}
	if enc.ctxErrs[0] != nil {
		t.Fatalf("expected encoder context to be live, got %v", enc.ctxErrs[0])
	}
}

func TestConcurrentJobsStayIsolated(t *testing.T) {
	enc := &fakeEncoder{lines: []string{"frame=1", "frame=2", "frame=3"}}
	rec := newRecorder()
	manager, layout, store := newManager(t, enc, workflow.WithObserver(rec.observe))

	small := newJobWithFrames(t, layout, 3)
	large := newJobWithFrames(t, layout, 30)

	var wg sync.WaitGroup
	for _, id := range []string{small, large} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := manager.Submit(context.Background(), workflow.Request{JobID: id, FPS: 10}); err != nil {
				t.Errorf("Submit %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
	manager.Wait()

	for id, total := range map[string]uint{small: 3, large: 30} {
		if store.Get(id).State != jobs.StateCompleted {
			t.Fatalf("job %s did not complete: %#v", id, store.Get(id))
		}
		for _, status := range rec.statuses(id) {
			if status.Progress != nil && status.Progress.TotalFrames != 0 && status.Progress.TotalFrames != total {
				t.Fatalf("job %s observed foreign total %d", id, status.Progress.TotalFrames)
			}
		}
	}
}
