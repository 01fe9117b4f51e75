package preflight

import (
	"context"
	"fmt"

	"timelapse/internal/config"
	"timelapse/internal/deps"
)

// Result is one line of the readiness report.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll evaluates directories first, then binaries, then redis when a
// notification address is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	dirs := [][2]string{
		{"Storage directory", cfg.Paths.StorageDir},
		{"Log directory", cfg.Paths.LogDir},
	}
	results := make([]Result, 0, len(dirs)+2)
	for _, dir := range dirs {
		results = append(results, CheckDirectoryAccess(dir[0], dir[1]))
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, FromDependency(status))
	}
	if addr := cfg.Notifications.RedisAddr; addr != "" {
		results = append(results, CheckRedis(ctx, addr))
	}
	return results
}

// FromDependency folds a binary lookup into the report. A missing optional
// binary still passes.
func FromDependency(status deps.Status) Result {
	if !status.Available {
		if status.Optional {
			return Result{Name: status.Name, Passed: true, Detail: status.Detail + " (optional)"}
		}
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Command
	if status.Detail != "" {
		detail = fmt.Sprintf("%s (%s)", status.Command, status.Detail)
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}
