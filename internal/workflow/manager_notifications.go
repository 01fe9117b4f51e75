package workflow

import (
	"context"
	"log/slog"
	"time"

	"timelapse/internal/jobs"
	"timelapse/internal/logging"
)

func (m *Manager) handleSuccess(ctx context.Context, logger *slog.Logger, jobID string, started time.Time, total uint) {
	if !m.store.Complete(jobID) {
		return
	}
	elapsed := time.Since(started)
	m.observe(jobID, m.store.Get(jobID))
	m.metrics.JobFinished(string(jobs.StateCompleted), elapsed, total)

	logger.Info("job completed",
		logging.Uint64(logging.FieldTotalFrames, uint64(total)),
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "job_completed"),
	)

	if err := m.notifier.NotifyJobCompleted(ctx, jobID, int(total), elapsed); err != nil {
		logging.WarnWithContext(logger, "completion notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic and redis address"),
			logging.String(logging.FieldImpact, "job completion was not announced"),
		)
	}
}
