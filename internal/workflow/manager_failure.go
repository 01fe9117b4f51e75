package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"timelapse/internal/encoder"
	"timelapse/internal/frames"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/services"
)

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, jobID string, started time.Time, jobErr error) {
	message := failureMessage(jobErr)
	if !m.store.Fail(jobID, message) {
		return
	}
	status := m.store.Get(jobID)
	m.observe(jobID, status)
	m.metrics.JobFinished(string(jobs.StateFailed), time.Since(started), 0)

	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.Error(jobErr),
		logging.String("error_message", status.Error),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String(logging.FieldErrorHint, failureHint(jobErr)),
		logging.Alert("job_failure"),
	)

	if err := m.notifier.NotifyJobFailed(ctx, jobID, status.Error); err != nil {
		logging.WarnWithContext(logger, "failure notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic and redis address"),
			logging.String(logging.FieldImpact, "job failure was not announced"),
		)
	}
}

func failureMessage(err error) string {
	if err == nil {
		return "job failed without error detail"
	}
	var failure *encoder.Failure
	if errors.As(err, &failure) {
		return strings.TrimSpace(failure.Error())
	}
	if msg := strings.TrimSpace(services.Detail(err)); msg != "" {
		return msg
	}
	return "job failed"
}

func failureHint(err error) string {
	var failure *encoder.Failure
	switch {
	case errors.Is(err, frames.ErrEmptyManifest):
		return "upload at least one png, jpg, jpeg, or webp frame"
	case errors.As(err, &failure):
		return "inspect the ffmpeg diagnostics in the job error"
	case errors.Is(err, services.ErrExternalTool):
		return "install ffmpeg or set encoder.binary in the config"
	default:
		return "check storage_dir permissions and free space"
	}
}
