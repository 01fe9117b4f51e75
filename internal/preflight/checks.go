package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"

	"timelapse/internal/config"
	"timelapse/internal/deps"
)

const redisCheckTimeout = 3 * time.Second

// CheckRedis verifies that the status-event redis server answers PING.
// A single attempt is made; retries are disabled so the check fails fast.
func CheckRedis(ctx context.Context, addr string) Result {
	const name = "Redis"

	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Result{Name: name, Detail: "missing address"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, redisCheckTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		MaxRetries:  -1,
		DialTimeout: redisCheckTimeout,
	})
	defer client.Close()

	if err := client.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", addr, summarizeRedisError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (PONG)", addr)}
}

// CheckDirectoryAccess passes when path is a directory the daemon can list,
// create files in, and read back from.
func CheckDirectoryAccess(name, path string) Result {
	if problem := directoryProblem(path); problem != "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, problem)}
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

func directoryProblem(path string) string {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "does not exist"
	case err != nil:
		return "stat: " + err.Error()
	case !info.IsDir():
		return "is not a directory"
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return "insufficient permissions: " + err.Error()
	}
	return ""
}

// CheckSystemDeps evaluates the external binaries the encoder needs. The daemon
// logs the result at startup and the CLI check command renders it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	configured := ""
	if cfg != nil {
		configured = cfg.Encoder.Binary
	}
	return []deps.Status{deps.ResolveFFmpeg(configured)}
}

func summarizeRedisError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "ping timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ping timed out"
	}
	return err.Error()
}
