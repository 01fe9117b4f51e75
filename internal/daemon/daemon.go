package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"timelapse/internal/config"
	"timelapse/internal/deps"
	"timelapse/internal/encoder"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/metrics"
	"timelapse/internal/notifications"
	"timelapse/internal/preflight"
	"timelapse/internal/staging"
	"timelapse/internal/workflow"
)

const lockFileName = "timelapsed.lock"

// Options carries optional collaborators. Zero values select the production
// implementations derived from the config.
type Options struct {
	Encoder   workflow.Encoder
	Notifier  notifications.Service
	SessionID string
}

// Daemon owns the job store, the workflow manager, and the HTTP API, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	layout    staging.Layout
	workflow  *workflow.Manager
	notifier  notifications.Service
	metrics   *metrics.Recorder
	api       *apiServer
	sessionID string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	sweeper sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	SessionID    string
	StorageDir   string
	LockFilePath string
	Jobs         map[jobs.State]int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     jobs.NewStore(),
		layout:    staging.New(cfg.Paths.StorageDir),
		notifier:  opts.Notifier,
		sessionID: opts.SessionID,
		lockPath:  filepath.Join(cfg.Paths.LogDir, lockFileName),
	}
	d.lock = flock.New(d.lockPath)
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	if cfg.Metrics.Enabled {
		d.metrics = metrics.New()
	}

	enc := opts.Encoder
	if enc == nil {
		ffmpeg := deps.ResolveFFmpeg(cfg.Encoder.Binary)
		enc = encoder.NewInvoker(encoder.WithBinary(ffmpeg.Command), encoder.WithLogger(logger))
	}
	d.workflow = workflow.NewManager(d.layout, d.store, enc,
		workflow.WithLogger(logger),
		workflow.WithNotifier(d.notifier),
		workflow.WithMetrics(d.metrics),
	)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, begins serving the API, and starts the
// stale job sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another timelapse daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	d.sweeper.Add(1)
	go d.sweepLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("timelapse daemon started",
		logging.String("lock", d.lockPath),
		logging.String("storage_dir", d.layout.Root),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops the API, waits up to the shutdown grace for in-flight encodes,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.sweeper.Wait()

	if grace := d.cfg.ShutdownGrace(); grace > 0 {
		if !d.workflow.WaitTimeout(grace) {
			counts := d.store.Counts()
			logging.WarnWithContext(d.logger, "shutdown grace expired with encodes in flight", "shutdown_grace_expired",
				logging.Int("processing", counts[jobs.StateProcessing]),
				logging.Duration("grace", grace),
				logging.String(logging.FieldErrorHint, "raise jobs.shutdown_grace_seconds for long encodes"),
				logging.String(logging.FieldImpact, "in-flight jobs are abandoned with the process"),
			)
		}
	}

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
			logging.String(logging.FieldImpact, "lock file may linger"),
		)
	}
	d.running.Store(false)
	d.logger.Info("timelapse daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases notifier connections.
func (d *Daemon) Close() error {
	d.Stop()
	if d.notifier != nil {
		return d.notifier.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    d.sessionID,
		StorageDir:   d.layout.Root,
		LockFilePath: d.lockPath,
		Jobs:         d.store.Counts(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}

// Handler exposes the API router, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Addr reports the bound API address, or "" when the API is not listening.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Workflow exposes the job manager.
func (d *Daemon) Workflow() *workflow.Manager {
	return d.workflow
}

// Sweep removes job directories older than the retention window, skipping
// jobs that are still encoding, and forgets their statuses.
func (d *Daemon) Sweep(ctx context.Context) staging.CleanStaleResult {
	var result staging.CleanStaleResult
	d.workflow.Quiesce(func() {
		result = staging.CleanStale(ctx, d.layout.Root, d.cfg.JobRetention(), d.logger, d.busy)
		for _, path := range result.Removed {
			_ = d.store.Forget(filepath.Base(path))
		}
	})
	return result
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.sweeper.Done()
	interval := d.cfg.SweepInterval()
	if interval <= 0 || d.cfg.JobRetention() <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

func (d *Daemon) busy(id string) bool {
	return d.store.Get(strings.TrimSpace(id)).State == jobs.StateProcessing
}
