// Package jobs tracks the lifecycle of timelapse encodes in memory.
//
// A job moves pending → processing (unmeasured, then any number of progress
// snapshots) → completed or failed, and never leaves a terminal state. The
// Store is created once and injected; there is no package-level state.
package jobs
