package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for timelapse job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized structured logging key for job stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldSessionID tags every line of one daemon run.
	FieldSessionID = "session_id"
	// FieldEventType names the event so log consumers can filter without parsing messages.
	FieldEventType = "event_type"
	// FieldErrorHint is the next step an operator should take after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldProgressPercent carries encode completion (0-100).
	FieldProgressPercent = "progress_percent"
	// FieldCurrentFrame carries the last frame reported by the encoder.
	FieldCurrentFrame = "current_frame"
	// FieldTotalFrames carries the manifest frame count.
	FieldTotalFrames = "total_frames"
)
