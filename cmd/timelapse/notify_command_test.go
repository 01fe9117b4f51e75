package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

func TestTestNotifyWithoutBackends(t *testing.T) {
	configPath, _ := setupEncodeConfig(t, "")

	out, _, err := runCLI(t, []string{"test-notify"}, "", configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "No notification backends configured")
}

func TestTestNotifyPostsToNtfy(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	configPath, _ := setupEncodeConfig(t, "")
	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := fmt.Fprintf(f, "\n[notifications]\nntfy_topic = %q\n", srv.URL+"/timelapse"); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = f.Close()

	out, _, err := runCLI(t, []string{"test-notify"}, "", configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || bodies[0] == "" {
		t.Fatalf("unexpected ntfy deliveries: %#v", bodies)
	}
}
