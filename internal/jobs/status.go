package jobs

// State is the lifecycle position of a job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stage names the step of a processing job.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageEncoding   Stage = "encoding"
	StageFinalizing Stage = "finalizing"
)

// Progress is a snapshot of encode advancement.
type Progress struct {
	Stage        Stage
	CurrentFrame uint
	TotalFrames  uint
	Percent      uint8
}

// Status is the recorded state of one job. Progress is only set while
// processing and stays nil until the first measurement; Error only when failed.
type Status struct {
	State    State
	Progress *Progress
	Error    string
}

const maxErrorRunes = 500

// TruncateError bounds a failure message to 500 characters plus a marker.
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxErrorRunes {
		return msg
	}
	return string(runes[:maxErrorRunes]) + "..."
}

// percentOf derives encode percent, held below 100 until completion.
func percentOf(current, total uint) uint8 {
	if total == 0 {
		return 0
	}
	pct := uint64(current) * 100 / uint64(total)
	return uint8(min(pct, 99))
}
