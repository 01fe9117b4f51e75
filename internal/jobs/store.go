package jobs

import (
	"fmt"
	"sync"

	"timelapse/internal/services"
)

// Store holds job statuses for the lifetime of the process. Readers and the
// single writer per job share one RWMutex; every critical section is O(1).
type Store struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]Status)}
}

// Get returns the status of id. Unknown ids read as pending.
func (s *Store) Get(id string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.jobs[id]
	if !ok {
		return Status{State: StatePending}
	}
	return cloneStatus(status)
}

// Known reports whether id has ever been written.
func (s *Store) Known(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[id]
	return ok
}

// MarkProcessing records an accepted job that has not been measured yet.
// A job already processing or finished cannot be started again.
func (s *Store) MarkProcessing(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[id]; ok && current.State != StatePending {
		return services.Wrap(services.ErrConflict, "jobs", "mark processing",
			fmt.Sprintf("job %s already %s", id, current.State), nil)
	}
	s.jobs[id] = Status{State: StateProcessing}
	return nil
}

// UpdateProgress records a progress snapshot for a job that MarkProcessing
// accepted. Frame count and percent never move backwards within a run.
// Writes for unknown, pending, or terminal jobs are ignored and the returned
// bool is false.
func (s *Store) UpdateProgress(id string, stage Stage, current, total uint) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.jobs[id]
	if !ok {
		return Status{State: StatePending}, false
	}
	if status.State != StateProcessing {
		return cloneStatus(status), false
	}

	next := Progress{
		Stage:        stage,
		CurrentFrame: current,
		TotalFrames:  total,
		Percent:      percentOf(current, total),
	}
	if prev := status.Progress; prev != nil {
		next.CurrentFrame = max(next.CurrentFrame, prev.CurrentFrame)
		next.Percent = max(next.Percent, prev.Percent)
	}
	status = Status{State: StateProcessing, Progress: &next}
	s.jobs[id] = status
	return cloneStatus(status), true
}

// Complete marks id completed unless it already reached a terminal state.
func (s *Store) Complete(id string) bool {
	return s.finish(id, Status{State: StateCompleted})
}

// Fail marks id failed with a truncated message unless it is already terminal.
func (s *Store) Fail(id, msg string) bool {
	return s.finish(id, Status{State: StateFailed, Error: TruncateError(msg)})
}

func (s *Store) finish(id string, status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[id]; ok && current.State.Terminal() {
		return false
	}
	s.jobs[id] = status
	return true
}

// Forget drops id from the store. Processing jobs cannot be forgotten.
func (s *Store) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[id]; ok && current.State == StateProcessing {
		return services.Wrap(services.ErrConflict, "jobs", "forget",
			fmt.Sprintf("job %s is still processing", id), nil)
	}
	delete(s.jobs, id)
	return nil
}

// Snapshot copies every known status.
func (s *Store) Snapshot() map[string]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Status, len(s.jobs))
	for id, status := range s.jobs {
		out[id] = cloneStatus(status)
	}
	return out
}

// Counts tallies known jobs by state.
func (s *Store) Counts() map[State]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[State]int, 4)
	for _, status := range s.jobs {
		counts[status.State]++
	}
	return counts
}

func cloneStatus(status Status) Status {
	if status.Progress != nil {
		p := *status.Progress
		status.Progress = &p
	}
	return status
}
