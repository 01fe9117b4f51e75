package frames

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func frameNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "frame" + string(rune('a'+i)) + ".png"
	}
	return names
}

func TestBuildNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "frame2.png", "frame10.png", "frame1.png")

	entries, err := Build(dir, 10)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	got := make([]string, len(entries))
	for i, entry := range entries {
		if !filepath.IsAbs(entry.Path) {
			t.Fatalf("expected absolute path, got %q", entry.Path)
		}
		got[i] = filepath.Base(entry.Path)
	}
	want := []string{"frame1.png", "frame2.png", "frame10.png"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}
}

func TestBuildFiltersExtensionsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "a.PNG", "b.Jpg", "c.jpeg", "d.webp", "notes.txt", "e.gif", "noext")
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := List(dir)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"a.PNG", "b.Jpg", "c.jpeg", "d.webp"}
	if !slices.Equal(names, want) {
		t.Fatalf("unexpected names: got %v want %v", names, want)
	}
}

func TestBuildDurationSplit(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, frameNames(8)...)

	entries, err := Build(dir, 10)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(entries) != 8 {
		t.Fatalf("unexpected entry count: got %d want 8", len(entries))
	}
	for i, entry := range entries {
		want := 0.1
		if i >= 3 {
			want = 0.5
		}
		if math.Abs(entry.Duration-want) > 1e-9 {
			t.Fatalf("entry %d duration: got %v want %v", i, entry.Duration, want)
		}
	}
}

func TestBuildShortSequenceAllSlow(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, frameNames(3)...)

	entries, err := Build(dir, 30)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for i, entry := range entries {
		if entry.Duration != 0.5 {
			t.Fatalf("entry %d duration: got %v want 0.5", i, entry.Duration)
		}
	}
}

func TestBuildEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "readme.txt")

	_, err := Build(dir, 10)
	if !errors.Is(err, ErrEmptyManifest) {
		t.Fatalf("expected ErrEmptyManifest, got %v", err)
	}
}

func TestBuildMissingDir(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "missing"), 10); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNaturalLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"frame2", "frame10", true},
		{"frame10", "frame2", false},
		{"img_001", "img_2", true},
		{"a", "b", true},
		{"frame", "frame1", true},
		{"frame01", "frame1", true},
		{"frame1", "frame01", false},
		{"x99999999999999999999999", "x100000000000000000000000", true},
		{"same", "same", false},
	}
	for _, tc := range cases {
		if got := NaturalLess(tc.a, tc.b); got != tc.want {
			t.Errorf("NaturalLess(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
