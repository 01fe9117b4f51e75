package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// SlowEndingFrames is how many trailing frames are held longer.
	SlowEndingFrames = 5
	// SlowEndingFPS is the display rate of the trailing frames.
	SlowEndingFPS = 2.0
)

// ErrEmptyManifest reports a frame directory with no usable images.
var ErrEmptyManifest = errors.New("no image files found")

// Entry is one frame of the encode manifest.
type Entry struct {
	Path     string  // absolute path
	Duration float64 // seconds on screen
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// IsImage reports whether name carries a supported frame extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// List returns the image file names in dir in natural order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.SortFunc(names, compareNatural)
	return names, nil
}

// Build orders the frames in dir and assigns each its display duration.
// The last min(SlowEndingFrames, N) frames run at SlowEndingFPS; the rest at fps.
func Build(dir string, fps int) ([]Entry, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", fps)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve frames dir: %w", err)
	}
	names, err := List(absDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrEmptyManifest
	}

	normal := 1 / float64(fps)
	slow := 1 / SlowEndingFPS
	slowFrom := len(names) - min(SlowEndingFrames, len(names))

	out := make([]Entry, len(names))
	for i, name := range names {
		duration := normal
		if i >= slowFrom {
			duration = slow
		}
		out[i] = Entry{Path: filepath.Join(absDir, name), Duration: duration}
	}
	return out, nil
}
