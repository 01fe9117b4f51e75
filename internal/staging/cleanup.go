package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timelapse/internal/logging"
)

// CleanStaleResult contains the outcome of a stale job sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job directories under root whose modification time is
// older than maxAge. Directories that are not job ids are left alone, as are
// jobs for which busy returns true. busy may be nil.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger, busy func(id string) bool) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() || ValidateJobID(entry.Name()) != nil {
			continue
		}
		if busy != nil && busy(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale job directory", "job_cleanup_failed",
				logging.String(logging.FieldJobID, entry.Name()),
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stale job directory",
			logging.String(logging.FieldJobID, entry.Name()),
			logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
			logging.String(logging.FieldEventType, "job_cleanup"),
		)
	}

	return result
}

// JobDirInfo describes one job directory on disk.
type JobDirInfo struct {
	ID        string
	Path      string
	ModTime   time.Time
	Size      int64
	HasOutput bool
}

// ListJobs returns every job directory under root with its disk usage.
func ListJobs(root string) ([]JobDirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var jobs []JobDirInfo
	for _, entry := range entries {
		if !entry.IsDir() || ValidateJobID(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		size, _ := dirSize(dirPath)
		_, outErr := os.Stat(filepath.Join(dirPath, outputName))
		jobs = append(jobs, JobDirInfo{
			ID:        entry.Name(),
			Path:      dirPath,
			ModTime:   info.ModTime(),
			Size:      size,
			HasOutput: outErr == nil,
		})
	}
	return jobs, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
