package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"timelapse/internal/frames"
)

// WriteManifest writes entries in the concat demuxer format:
//
//	file '/abs/path/frame1.png'
//	duration 0.100000
func WriteManifest(path string, entries []frames.Entry) error {
	var b strings.Builder
	for _, entry := range entries {
		abs, err := filepath.Abs(entry.Path)
		if err != nil {
			return fmt.Errorf("resolve frame path %q: %w", entry.Path, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeQuotes(abs))
		fmt.Fprintf(&b, "duration %.6f\n", entry.Duration)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func escapeQuotes(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// BuildArgs returns the ffmpeg argument list for one encode. Quality settings
// are fixed so every output plays back the same way.
func BuildArgs(manifestPath, filter, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	return append(args,
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-progress", "pipe:2",
		"-y", outputPath,
	)
}
