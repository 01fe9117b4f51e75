package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timelapse/internal/config"
	"timelapse/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRedis_MissingAddress(t *testing.T) {
	result := CheckRedis(context.Background(), "  ")
	if result.Passed {
		t.Fatal("expected failure for missing address")
	}
	if result.Detail != "missing address" {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckRedis_Unreachable(t *testing.T) {
	result := CheckRedis(context.Background(), "127.0.0.1:1")
	if result.Passed {
		t.Fatal("expected failure for unreachable redis")
	}
	if !strings.HasPrefix(result.Detail, "127.0.0.1:1 (") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestFromDependency(t *testing.T) {
	ok := FromDependency(deps.Status{Name: "FFmpeg", Command: "/usr/bin/ffmpeg", Available: true})
	if !ok.Passed || ok.Detail != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected result: %#v", ok)
	}
	missing := FromDependency(deps.Status{Name: "FFmpeg", Detail: "not found"})
	if missing.Passed || missing.Detail != "not found" {
		t.Fatalf("unexpected result: %#v", missing)
	}
	optional := FromDependency(deps.Status{Name: "Extra", Detail: "not found", Optional: true})
	if !optional.Passed || !strings.HasSuffix(optional.Detail, "(optional)") {
		t.Fatalf("unexpected result: %#v", optional)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.StorageDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Encoder.Binary = ffmpeg
	cfg.Notifications.RedisAddr = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesRedisWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StorageDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Notifications.RedisAddr = "127.0.0.1:1"

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Redis" {
			found = true
			if r.Passed {
				t.Error("expected redis check to fail for closed port")
			}
		}
	}
	if !found {
		t.Fatal("expected Redis check in results")
	}
}
