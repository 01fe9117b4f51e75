package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"timelapse/internal/encoder"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/metrics"
	"timelapse/internal/notifications"
	"timelapse/internal/services"
	"timelapse/internal/staging"
)

const (
	MinFPS = 1
	MaxFPS = 60

	progressLogBucket = 5
)

// Encoder runs one ffmpeg encode, streaming diagnostic lines to onLine.
type Encoder interface {
	Run(ctx context.Context, req encoder.Request, onLine func(string)) error
}

// Observer is told about every status write. It runs on the job goroutine
// and must not block.
type Observer func(jobID string, status jobs.Status)

// Request asks for one job's frames to be encoded.
type Request struct {
	JobID    string
	FPS      int
	Rotation int
}

// Manager accepts encode requests and drives each job to a terminal state on
// its own goroutine. Jobs are not capped and cannot be cancelled once running.
type Manager struct {
	layout   staging.Layout
	store    *jobs.Store
	encoder  Encoder
	logger   *slog.Logger
	notifier notifications.Service
	metrics  *metrics.Recorder
	observer Observer

	// admit serializes job admission against job removal so a directory is
	// never deleted between Validate and MarkProcessing.
	admit sync.Mutex
	wg    sync.WaitGroup
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets the completion/failure notifier.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithObserver registers a callback for status writes.
func WithObserver(fn Observer) Option {
	return func(m *Manager) { m.observer = fn }
}

// NewManager constructs a workflow manager over the given job storage and store.
func NewManager(layout staging.Layout, store *jobs.Store, enc Encoder, opts ...Option) *Manager {
	m := &Manager{
		layout:   layout,
		store:    store,
		encoder:  enc,
		logger:   logging.NewNop(),
		notifier: notifications.NewService(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	return m
}

// Store exposes the job status store.
func (m *Manager) Store() *jobs.Store {
	return m.store
}

// Validate checks a request without side effects.
func (m *Manager) Validate(req Request) error {
	if err := staging.ValidateJobID(req.JobID); err != nil {
		return err
	}
	if !encoder.ValidRotation(req.Rotation) {
		return services.Wrap(services.ErrValidation, "workflow", "validate",
			fmt.Sprintf("rotation must be 0, 90, 180, or 270, got %d", req.Rotation), nil)
	}
	if req.FPS < MinFPS || req.FPS > MaxFPS {
		return services.Wrap(services.ErrValidation, "workflow", "validate",
			fmt.Sprintf("fps must be between %d and %d, got %d", MinFPS, MaxFPS, req.FPS), nil)
	}
	if !m.layout.Exists(req.JobID) {
		return services.Wrap(services.ErrNotFound, "workflow", "validate",
			fmt.Sprintf("job %s not found", req.JobID), nil)
	}
	return nil
}

// Submit validates req, records the job as processing, and starts the encode
// in the background. Only validation and conflict errors are returned; every
// later failure is recorded in the store.
func (m *Manager) Submit(ctx context.Context, req Request) error {
	if err := m.admitJob(req); err != nil {
		return err
	}
	m.metrics.JobSubmitted()
	m.observe(req.JobID, m.store.Get(req.JobID))

	jobCtx := services.WithJobID(context.WithoutCancel(ctx), req.JobID)
	logging.WithContext(jobCtx, m.logger).Info("job accepted",
		logging.Int("fps", req.FPS),
		logging.Int("rotation", req.Rotation),
		logging.String(logging.FieldEventType, "job_accepted"),
	)

	m.wg.Add(1)
	go m.run(jobCtx, req, time.Now())
	return nil
}

func (m *Manager) admitJob(req Request) error {
	m.admit.Lock()
	defer m.admit.Unlock()
	if err := m.Validate(req); err != nil {
		return err
	}
	return m.store.MarkProcessing(req.JobID)
}

// Remove forgets id and deletes its job directory. A processing job is a
// conflict and keeps its files.
func (m *Manager) Remove(id string) error {
	if err := staging.ValidateJobID(id); err != nil {
		return err
	}
	m.admit.Lock()
	defer m.admit.Unlock()
	if err := m.store.Forget(id); err != nil {
		return err
	}
	return m.layout.Cleanup(id)
}

// Quiesce runs fn while no job can be admitted. The stale sweep uses it so
// its busy check and directory removal see the same job states.
func (m *Manager) Quiesce(fn func()) {
	m.admit.Lock()
	defer m.admit.Unlock()
	fn()
}

// Wait blocks until every accepted job has reached a terminal state.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// WaitTimeout waits for in-flight jobs up to d and reports whether they all
// finished.
func (m *Manager) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (m *Manager) observe(jobID string, status jobs.Status) {
	if m.observer != nil {
		m.observer(jobID, status)
	}
}
