package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"timelapse/internal/config"
	"timelapse/internal/daemon"
	"timelapse/internal/logging"
	"timelapse/internal/preflight"
)

const (
	logPrefix      = "timelapse-"
	currentLogName = "timelapse.log"
	pidFileName    = "timelapse.pid"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the timelapse daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, logPrefix+runID+".log")
	sessionID := uuid.NewString()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		SessionID:        sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", currentLogName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: logPrefix + "*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger, daemon.Options{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and whether another daemon holds the lock"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("timelapse daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// CurrentLogPath is the link that always names the newest daemon log.
func CurrentLogPath(logDir string) string {
	return filepath.Join(logDir, currentLogName)
}

// ensureCurrentLogPointer swaps CurrentLogPath over to target. The link is
// built under a temporary name and renamed into place; filesystems without
// symlinks get a hard link.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	link := target
	if filepath.Dir(target) == filepath.Clean(logDir) {
		link = filepath.Base(target)
	}
	staged := CurrentLogPath(logDir) + ".next"
	_ = os.Remove(staged)
	if err := os.Symlink(link, staged); err != nil {
		if err := os.Link(target, staged); err != nil {
			return fmt.Errorf("link log pointer: %w", err)
		}
	}
	if err := os.Rename(staged, CurrentLogPath(logDir)); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("replace log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Info("dependency ready",
				logging.String(logging.FieldEventType, "dependency_snapshot"),
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "dependency unavailable", "dependency_snapshot",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run timelapse check for remediation"),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"),
		)
	}
}
