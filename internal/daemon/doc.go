// Package daemon coordinates the long-running timelapse service.
//
// It wires configuration, job staging, the in-memory status store, the
// workflow manager, notifications, and metrics into a single lifecycle with
// flock-based locking to prevent multiple instances. The HTTP API is served on
// a gorilla/mux router; everything under /api sits behind the optional bearer
// token while /health and /metrics stay open. A ticker sweeps job directories
// that outlive the configured retention.
//
// Keep orchestration logic here: encoding steps live in workflow and encoder
// while the daemon focuses on startup, shutdown, and request handling.
package daemon
