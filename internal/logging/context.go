package logging

import (
	"context"
	"log/slog"

	"timelapse/internal/services"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldJobID, services.JobIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// WithContext returns logger with the job id, stage, and request id carried
// by ctx attached as attributes.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, f := range contextFields {
		if value, ok := f.lookup(ctx); ok {
			args = append(args, slog.String(f.key, value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
