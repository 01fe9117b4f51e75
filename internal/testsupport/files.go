package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// EncodeScript is an ffmpeg stub body that reports three frames and writes
// "mp4" to the output path (the last argument).
const EncodeScript = `for last; do :; done
printf 'frame=1\nframe=2\nframe=3\n' >&2
printf 'mp4' > "$last"
`

// WriteFrames creates one file per name in a new temp directory. Each file
// holds its own name, which keeps copies distinguishable.
func WriteFrames(t testing.TB, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write frame %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return dir, paths
}

// WriteFFmpegStub writes an executable ffmpeg script into dir and returns
// its path.
func WriteFFmpegStub(t testing.TB, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nif [ \"$1\" = \"-version\" ]; then\n\techo \"ffmpeg version stub\"\n\texit 0\nfi\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return path
}
