// Package daemonrun hosts the foreground daemon entry point used by
// `timelapse serve`: per-run log files, pid file, signal handling, and the
// daemon lifecycle.
package daemonrun
