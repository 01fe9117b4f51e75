package daemon_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timelapse/internal/config"
	"timelapse/internal/daemon"
	"timelapse/internal/encoder"
	"timelapse/internal/testsupport"
)

type noopEncoder struct{}

func (noopEncoder) Run(context.Context, encoder.Request, func(string)) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBind("127.0.0.1:0"))
	cfg.Jobs.ShutdownGraceSeconds = 1
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, nil, daemon.Options{Encoder: noopEncoder{}, SessionID: "session-1"})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.SessionID != "session-1" {
		t.Fatalf("unexpected session id: %q", status.SessionID)
	}
	if want := filepath.Join(cfg.Paths.LogDir, "timelapsed.lock"); status.LockFilePath != want {
		t.Fatalf("unexpected lock path: got %q want %q", status.LockFilePath, want)
	}

	addr := d.Addr()
	if addr == "" {
		t.Fatal("expected api server to be listening")
	}
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: got %d want 200", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Addr() != "" {
		t.Fatal("expected api listener to be closed")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if err == nil {
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonStartFailsWhenBindBusy(t *testing.T) {
	cfg := testConfig(t)
	holder := newDaemon(t, cfg)
	if err := holder.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	other := testConfig(t)
	other.Paths.APIBind = holder.Addr()
	d := newDaemon(t, other)
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected listen failure")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon must not report running after a failed start")
	}
}

func TestDaemonSweepRemovesStaleJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.RetentionHours = 1
	d := newDaemon(t, cfg)

	stale := filepath.Join(cfg.Paths.StorageDir, "0b9b3c1e-4f7a-4d2b-9a57-3c2f1d0e8a11")
	fresh := filepath.Join(cfg.Paths.StorageDir, "5d8f0f5c-2a51-4f0e-9b3e-6a3c1c7b2d90")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(filepath.Join(dir, "frames"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := d.Sweep(context.Background())
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh job should remain: %v", err)
	}
}
