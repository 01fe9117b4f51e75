package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"timelapse/internal/config"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := NewService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyJobFailed(context.Background(), "job", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if NewService(nil) == nil {
		t.Fatal("expected nil config to yield a usable service")
	}
}

func TestNtfyFormatsJobEvents(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := NewService(&cfg)
	t.Cleanup(func() { _ = svc.Close() })

	ctx := context.Background()
	if err := svc.NotifyJobCompleted(ctx, "abc", 120, 42*time.Second); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if err := svc.NotifyJobFailed(ctx, "abc", "  ffmpeg exited with status 1  "); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}

	got := captured()
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	want := []capturedRequest{
		{title: "Timelapse - Ready", tags: "timelapse,encode,completed", body: "🎞️ Timelapse abc ready: 120 frames in 42s"},
		{title: "Timelapse - Failed", tags: "timelapse,error,alert", priority: "high", body: "❌ Timelapse abc failed: ffmpeg exited with status 1"},
		{title: "Timelapse - Test", tags: "timelapse,test", priority: "low", body: "🧪 Notification system test"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d: got %#v want %#v", i, got[i], want[i])
		}
	}
}

func TestToggleSuppressesEvents(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.OnComplete = false
	cfg.Notifications.OnFailure = false
	svc := NewService(&cfg)

	_ = svc.NotifyJobCompleted(context.Background(), "abc", 1, time.Second)
	_ = svc.NotifyJobFailed(context.Background(), "abc", "boom")
	if n := len(captured()); n != 0 {
		t.Fatalf("expected suppressed events, got %d requests", n)
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer srv.Close()

	backend := newNtfy(srv.URL, srv.Client())
	err := backend.send(context.Background(), Event{Kind: KindTest})
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFanoutContinuesAfterBackendFailure(t *testing.T) {
	srv, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RedisAddr = "127.0.0.1:1"
	cfg.Notifications.RequestTimeout = 1
	svc := NewService(&cfg)
	t.Cleanup(func() { _ = svc.Close() })

	err := svc.NotifyJobFailed(context.Background(), "abc", "boom")
	if err == nil || !strings.Contains(err.Error(), "publish redis status") {
		t.Fatalf("expected redis publish error, got %v", err)
	}
	if n := len(captured()); n != 1 {
		t.Fatalf("expected ntfy delivery despite redis failure, got %d requests", n)
	}
}

func TestEncodeStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := encodeStatus(Event{Kind: KindCompleted, JobID: "abc", Frames: 10, Elapsed: 1500 * time.Millisecond, At: at})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["jobId"] != "abc" || decoded["status"] != "completed" || decoded["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected status document: %s", data)
	}
	if decoded["elapsedSeconds"] != 1.5 {
		t.Fatalf("unexpected elapsed: %v", decoded["elapsedSeconds"])
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("expected error to be omitted: %s", data)
	}

	failed, _ := encodeStatus(Event{Kind: KindFailed, JobID: "abc", Message: "boom", At: at})
	if !strings.Contains(string(failed), `"error":"boom"`) || strings.Contains(string(failed), "elapsedSeconds") {
		t.Fatalf("unexpected failed document: %s", failed)
	}
}
