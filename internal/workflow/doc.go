// Package workflow orchestrates timelapse jobs.
//
// Submit validates a request synchronously, records the job as processing,
// and hands the rest to a goroutine: build the frame manifest, resolve the
// rotation filter, run ffmpeg while translating its frame= lines into
// progress writes, and finish with a completed or failed status. Errors after
// acceptance never reach the caller; they are truncated into the job status,
// logged, counted, and announced.
//
// Job goroutines run on a context detached from the submitting request so a
// closed HTTP connection does not kill an encode. There is no concurrency cap
// and no cancellation; daemon shutdown waits for a grace period instead.
package workflow
