package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Options describes logger construction parameters.
//
// Every record goes to OutputPaths (stdout when empty). ErrorOutputPaths
// additionally receive records at error level; a path listed in both gets
// each record once. "stdout" and "stderr" name the process streams, anything
// else is a file opened for append.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	SessionID        string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	withSource := opts.Development || level.Level() <= slog.LevelDebug

	build, err := handlerBuilder(opts.Format, withSource)
	if err != nil {
		return nil, err
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	primary, err := openSinks(outputs, nil)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		primary = os.Stdout
	}
	errorsOnly, err := openSinks(opts.ErrorOutputPaths, outputs)
	if err != nil {
		return nil, err
	}

	handler := build(primary, level)
	if errorsOnly != nil {
		handler = fanout{handler, build(errorsOnly, errorLevel{level})}
	}

	logger := slog.New(handler)
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		logger = logger.With(String(FieldSessionID, id))
	}
	return logger, nil
}

// ParseLevel maps a config level name onto slog. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type buildFunc func(w io.Writer, level slog.Leveler) slog.Handler

func handlerBuilder(format string, withSource bool) (buildFunc, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return func(w io.Writer, level slog.Leveler) slog.Handler {
			return &consoleHandler{out: &lockedWriter{w: w}, level: level, source: withSource}
		}, nil
	case "json":
		return func(w io.Writer, level slog.Leveler) slog.Handler {
			return slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:       level,
				AddSource:   withSource,
				ReplaceAttr: renameJSONKeys,
			})
		}, nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// openSinks opens every path not in skip. It returns nil when nothing is left.
func openSinks(paths, skip []string) (io.Writer, error) {
	seen := make(map[string]bool, len(paths)+len(skip))
	for _, p := range skip {
		seen[strings.TrimSpace(p)] = true
	}

	var writers []io.Writer
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		w, err := openSink(p)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return nil, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func openSink(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// errorLevel raises a leveler to at least slog.LevelError.
type errorLevel struct{ base slog.Leveler }

func (l errorLevel) Level() slog.Level {
	return max(l.base.Level(), slog.LevelError)
}

// fanout hands each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
