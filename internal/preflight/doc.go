// Package preflight provides readiness checks for the directories, binaries,
// and services the timelapse daemon depends on.
//
// The daemon logs RunAll at startup so misconfiguration shows up before the
// first job is accepted. The CLI "timelapse check" command renders the same
// results, and the synchronous encode command relies on the encoder probe
// instead.
package preflight
