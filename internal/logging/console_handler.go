package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// consoleHandler writes one line per record:
//
//	2026-01-02T15:04:05Z INFO [0f8fad5b] workflow: encode started total_frames=12
//
// The component and a short job id move into the prefix; other attributes
// follow as key=value pairs with group names joined by dots.
type consoleHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	source bool
	attrs  []field
	group  string
}

type field struct {
	key   string
	value slog.Value
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.group, attr)
		return true
	})

	var component, jobID string
	var line strings.Builder
	line.Grow(160)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line.WriteString(ts.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(levelName(record.Level))
	line.WriteByte(' ')

	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent && component == "":
			component = plainValue(f.value)
		case f.key == FieldJobID && jobID == "":
			jobID = plainValue(f.value)
		default:
			rest = append(rest, f)
		}
	}
	if jobID != "" {
		line.WriteByte('[')
		line.WriteString(jobID[:min(8, len(jobID))])
		line.WriteString("] ")
	}
	if component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)

	if h.source {
		if src := record.Source(); src != nil && src.File != "" {
			line.WriteString(" [")
			line.WriteString(filepath.Base(src.File))
			line.WriteByte(':')
			line.WriteString(strconv.Itoa(src.Line))
			line.WriteByte(']')
		}
	}
	for _, f := range rest {
		line.WriteByte(' ')
		line.WriteString(f.key)
		line.WriteByte('=')
		line.WriteString(quotedValue(f.value))
	}
	line.WriteByte('\n')

	_, err := h.out.Write([]byte(line.String()))
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]field(nil), h.attrs...)
	for _, attr := range attrs {
		next.attrs = appendField(next.attrs, h.group, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return append(dst, field{key: prefix + attr.Key, value: value})
	}
	if attr.Key != "" {
		prefix += attr.Key + "."
	}
	for _, child := range value.Group() {
		dst = appendField(dst, prefix, child)
	}
	return dst
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
