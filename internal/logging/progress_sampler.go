package logging

import "strings"

// ProgressSampler decides which encode progress updates are worth a log line:
// the first update of each stage, then one per percent bucket. ffmpeg reports
// several times a second, so logging every update would bury everything else.
// A nil sampler logs everything. Not safe for concurrent use.
type ProgressSampler struct {
	bucket int
	stage  string
	last   int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percent; values <= 0 mean 5.
func NewProgressSampler(bucket int) *ProgressSampler {
	if bucket <= 0 {
		bucket = 5
	}
	return &ProgressSampler{bucket: bucket, last: -1}
}

// ShouldLog reports whether this update starts a new stage or bucket.
// A negative percent only counts toward stage changes.
func (s *ProgressSampler) ShouldLog(percent int, stage string) bool {
	if s == nil {
		return true
	}
	changed := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage, s.last, changed = stage, -1, true
	}
	if percent < 0 {
		return changed
	}
	if b := min(percent, 100) / s.bucket; b > s.last {
		s.last = b
		return true
	}
	return changed
}
