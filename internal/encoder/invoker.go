package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"timelapse/internal/frames"
	"timelapse/internal/logging"
	"timelapse/internal/services"
)

var commandContext = exec.CommandContext

const (
	defaultBinary   = "ffmpeg"
	diagnosticLines = 200
	maxLineBytes    = 1024 * 1024
)

// Request describes one encode.
type Request struct {
	Entries      []frames.Entry
	ManifestPath string
	OutputPath   string
	Filter       string
}

// Option configures the Invoker.
type Option func(*Invoker)

// WithBinary overrides the ffmpeg binary.
func WithBinary(binary string) Option {
	return func(i *Invoker) {
		if binary = strings.TrimSpace(binary); binary != "" {
			i.binary = binary
		}
	}
}

// WithLogger attaches a logger for manifest and process diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Invoker runs ffmpeg over a concat manifest and streams its progress.
type Invoker struct {
	binary string
	logger *slog.Logger
}

// NewInvoker constructs an Invoker using defaults.
func NewInvoker(opts ...Option) *Invoker {
	inv := &Invoker{binary: defaultBinary, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Binary returns the ffmpeg command the invoker executes.
func (i *Invoker) Binary() string {
	return i.binary
}

// Probe runs "ffmpeg -version" to confirm the encoder can be executed.
func (i *Invoker) Probe(ctx context.Context) error {
	cmd := commandContext(ctx, i.binary, "-version") //nolint:gosec
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w (%s: %v)", ErrEncoderUnavailable, i.binary, err)
	}
	return nil
}

// Run writes the manifest, launches ffmpeg once, and hands every line of its
// diagnostic stream to onLine. The manifest is removed on every exit path.
// A nil return means ffmpeg exited 0; the caller flushes the output with
// SyncOutput.
func (i *Invoker) Run(ctx context.Context, req Request, onLine func(string)) error {
	if len(req.Entries) == 0 {
		return frames.ErrEmptyManifest
	}
	if req.ManifestPath == "" {
		return errors.New("manifest path required")
	}
	if req.OutputPath == "" {
		return errors.New("output path required")
	}

	if err := WriteManifest(req.ManifestPath, req.Entries); err != nil {
		return err
	}
	defer i.removeManifest(req.ManifestPath)

	args := BuildArgs(req.ManifestPath, req.Filter, req.OutputPath)
	i.logger.Debug("starting ffmpeg",
		logging.String("binary", i.binary),
		logging.String("args", strings.Join(args, " ")),
		logging.Int("frames", len(req.Entries)),
	)

	cmd := commandContext(ctx, i.binary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "start ffmpeg", i.binary, err)
	}

	ring := newDiagnosticRing(diagnosticLines)
	scanErr := consume(stderr, ring, onLine)
	if scanErr != nil {
		// Drain so the process never blocks on a full pipe before Wait.
		_, _ = io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Failure{ExitCode: exitErr.ExitCode(), Diagnostics: ring.String()}
		}
		return services.Wrap(services.ErrExternalTool, "encoding", "wait ffmpeg", "", err)
	}
	if scanErr != nil {
		return fmt.Errorf("read ffmpeg output: %w", scanErr)
	}
	return nil
}

func consume(r io.Reader, ring *diagnosticRing, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanLinesWithCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if onLine != nil {
			onLine(line)
		}
		if !progressKeyValue.MatchString(line) {
			ring.add(line)
		}
	}
	return scanner.Err()
}

func (i *Invoker) removeManifest(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		i.logger.Debug("manifest cleanup failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

// SyncOutput forces the encoded file to durable storage so it is never
// served while partially written.
func SyncOutput(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer file.Close()
	if err := file.Sync(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
