package api

import "timelapse/internal/jobs"

// UploadResponse reports the job created by a frame upload.
type UploadResponse struct {
	JobID     string   `json:"jobId"`
	FileCount int      `json:"fileCount"`
	Filenames []string `json:"filenames"`
}

// CreateRequest asks the daemon to encode an uploaded job.
type CreateRequest struct {
	JobID    string `json:"jobId"`
	Rotation int    `json:"rotation"`
	FPS      int    `json:"fps"`
}

// CreateResponse acknowledges an accepted encode.
type CreateResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// JobEntry is one row of the job listing. The status view fields are inlined.
type JobEntry struct {
	JobID string `json:"jobId"`
	jobs.StatusView
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []JobEntry `json:"jobs"`
}

// RemoveResponse acknowledges a job cleanup.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// HealthResponse is the unauthenticated liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	SessionID    string             `json:"sessionId,omitempty"`
	StorageDir   string             `json:"storageDir"`
	LockFilePath string             `json:"lockFilePath"`
	Jobs         map[string]int     `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
