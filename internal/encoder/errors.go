package encoder

import (
	"errors"
	"fmt"
)

// ErrEncoderUnavailable reports that the ffmpeg binary could not be run.
var ErrEncoderUnavailable = errors.New("ffmpeg is not available; install ffmpeg or set encoder.binary in the config")

// Failure describes an ffmpeg run that exited with a non-zero status.
type Failure struct {
	ExitCode    int
	Diagnostics string
}

func (f *Failure) Error() string {
	if f.Diagnostics == "" {
		return fmt.Sprintf("ffmpeg exited with status %d", f.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with status %d: %s", f.ExitCode, f.Diagnostics)
}
