// Package api defines the wire-format types shared by the daemon's HTTP
// handlers and the CLI client.
//
// DTOs use camelCase JSON tags. JobEntry inlines jobs.StatusView so listing
// rows carry the same fields as the single-job status endpoint plus the id.
// Converters turn store snapshots and dependency probes into these shapes
// without exposing internal types to callers.
package api
