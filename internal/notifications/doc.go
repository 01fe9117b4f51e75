// Package notifications announces finished timelapse jobs.
//
// Two transports are supported and may run together: ntfy push messages and
// a redis PUBLISH of a small JSON status document for programmatic consumers.
// NewService wires whichever are configured and degrades to a no-op when
// neither is. Delivery errors are returned to the caller, which logs them;
// a failed notification never changes a job's outcome.
package notifications
