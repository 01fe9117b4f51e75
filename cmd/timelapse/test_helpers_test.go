package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timelapse/internal/config"
	"timelapse/internal/daemon"
	"timelapse/internal/encoder"
	"timelapse/internal/testsupport"
)

type videoEncoder struct{}

func (videoEncoder) Run(_ context.Context, req encoder.Request, onLine func(string)) error {
	for i := 1; i <= len(req.Entries); i++ {
		onLine(fmt.Sprintf("frame=%d", i))
	}
	return os.WriteFile(req.OutputPath, []byte("video-bytes"), 0o644)
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *httptest.Server
	configPath string
	baseDir    string
}

// setupCLITestEnv serves a daemon over httptest and writes a matching
// config file for the CLI.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithoutMetrics())
	base := testsupport.BaseDir(cfg)

	d, err := daemon.New(cfg, nil, daemon.Options{Encoder: videoEncoder{}})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		srv.Close()
		d.Workflow().Wait()
	})

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg.Paths.StorageDir, cfg.Paths.LogDir, "")

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, apiURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiURL != "" {
		flags = append(flags, "--api", apiURL)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, storageDir, logDir, ffmpeg string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstorage_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[encoder]\nbinary = %q\n",
		storageDir,
		logDir,
		"127.0.0.1:8080",
		ffmpeg,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
