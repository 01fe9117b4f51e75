package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// executablePath locates the running binary; tests replace it.
var executablePath = os.Executable

// ResolveFFmpeg reports the ffmpeg binary the encoder will execute.
//
// Lookup order: an explicitly configured binary, then an ffmpeg bundled next to
// the running executable (the packaged sidecar), then "ffmpeg" from PATH.
func ResolveFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for encoding timelapse video",
	}

	if configured = strings.TrimSpace(configured); configured != "" {
		result.Command = configured
		resolved, err := exec.LookPath(configured)
		if err != nil {
			result.Detail = fmt.Sprintf("configured binary %q not found", configured)
			return result
		}
		result.Command = resolved
		result.Available = true
		return result
	}

	if self, err := executablePath(); err == nil {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
		candidate := filepath.Join(filepath.Dir(self), executableName("ffmpeg"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			result.Detail = "bundled sidecar"
			return result
		}
	}

	if ffmpegPath, err := exec.LookPath("ffmpeg"); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = "ffmpeg"
	result.Detail = `binary "ffmpeg" not found; install ffmpeg or set encoder.binary`
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
