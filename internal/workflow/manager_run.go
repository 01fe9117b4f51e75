package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"timelapse/internal/encoder"
	"timelapse/internal/frames"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/services"
)

func (m *Manager) run(ctx context.Context, req Request, started time.Time) {
	defer m.wg.Done()
	logger := logging.WithContext(ctx, m.logger)

	var total uint
	defer func() {
		if r := recover(); r != nil {
			m.handleFailure(ctx, logger, req.JobID, started, fmt.Errorf("job panicked: %v", r))
		}
	}()

	if err := m.execute(ctx, logger, req, &total); err != nil {
		m.handleFailure(ctx, logger, req.JobID, started, err)
		return
	}
	m.handleSuccess(ctx, logger, req.JobID, started, total)
}

// execute performs the preparing → encoding → finalizing sequence and
// flushes the output last. The caller owns the terminal write.
func (m *Manager) execute(ctx context.Context, logger *slog.Logger, req Request, total *uint) error {
	m.update(req.JobID, jobs.StagePreparing, 0, 0)

	entries, err := frames.Build(m.layout.FramesDir(req.JobID), req.FPS)
	if err != nil {
		return err
	}
	*total = uint(len(entries))
	filter, _ := encoder.RotationFilter(req.Rotation)

	stageCtx := services.WithStage(ctx, string(jobs.StageEncoding))
	logging.WithContext(stageCtx, m.logger).Info("encode started",
		logging.Int(logging.FieldTotalFrames, len(entries)),
		logging.String("filter", filter),
		logging.String(logging.FieldEventType, "encode_started"),
	)
	m.update(req.JobID, jobs.StageEncoding, 0, *total)

	sampler := logging.NewProgressSampler(progressLogBucket)
	err = m.encoder.Run(stageCtx, encoder.Request{
		Entries:      entries,
		ManifestPath: m.layout.ManifestPath(req.JobID),
		OutputPath:   m.layout.OutputPath(req.JobID),
		Filter:       filter,
	}, func(line string) {
		frame, ok := encoder.ParseFrame(line)
		if !ok {
			return
		}
		status, applied := m.update(req.JobID, jobs.StageEncoding, min(frame, *total), *total)
		if !applied || status.Progress == nil {
			return
		}
		if sampler.ShouldLog(int(status.Progress.Percent), string(jobs.StageEncoding)) {
			logger.Info("encode progress",
				logging.Int(logging.FieldProgressPercent, int(status.Progress.Percent)),
				logging.Uint64(logging.FieldCurrentFrame, uint64(status.Progress.CurrentFrame)),
				logging.Uint64(logging.FieldTotalFrames, uint64(*total)),
			)
		}
	})
	if err != nil {
		return err
	}

	m.update(req.JobID, jobs.StageFinalizing, *total, *total)
	return encoder.SyncOutput(m.layout.OutputPath(req.JobID))
}

func (m *Manager) update(jobID string, stage jobs.Stage, current, total uint) (jobs.Status, bool) {
	status, applied := m.store.UpdateProgress(jobID, stage, current, total)
	if applied {
		m.observe(jobID, status)
	}
	return status, applied
}
