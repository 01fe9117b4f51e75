package jobs

// StatusView is the polling representation of a job.
type StatusView struct {
	Status       State  `json:"status"`
	Progress     *uint8 `json:"progress,omitempty"`
	Stage        string `json:"stage,omitempty"`
	CurrentFrame *uint  `json:"currentFrame,omitempty"`
	TotalFrames  *uint  `json:"totalFrames,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StageComplete is the stage label reported for completed jobs.
const StageComplete = "complete"

// View maps a status onto its polling representation.
func View(status Status) StatusView {
	view := StatusView{Status: status.State}
	switch status.State {
	case StateProcessing:
		if status.Progress == nil {
			view.Progress = ptr(uint8(0))
			view.Stage = string(StagePreparing)
			return view
		}
		p := status.Progress
		view.Progress = ptr(p.Percent)
		view.Stage = string(p.Stage)
		view.CurrentFrame = ptr(p.CurrentFrame)
		view.TotalFrames = ptr(p.TotalFrames)
	case StateCompleted:
		view.Progress = ptr(uint8(100))
		view.Stage = StageComplete
	case StateFailed:
		view.Error = status.Error
	}
	return view
}

func ptr[T any](v T) *T {
	return &v
}
