package api

import (
	"sort"

	"timelapse/internal/deps"
	"timelapse/internal/jobs"
)

// FromSnapshot flattens a store snapshot into listing rows ordered by job id.
func FromSnapshot(snapshot map[string]jobs.Status) []JobEntry {
	if len(snapshot) == 0 {
		return []JobEntry{}
	}
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]JobEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, JobEntry{JobID: id, StatusView: jobs.View(snapshot[id])})
	}
	return out
}

// MergeCounts reports a count for every state, including zeroes.
func MergeCounts(counts map[jobs.State]int) map[string]int {
	out := map[string]int{
		string(jobs.StatePending):    0,
		string(jobs.StateProcessing): 0,
		string(jobs.StateCompleted):  0,
		string(jobs.StateFailed):     0,
	}
	for state, n := range counts {
		out[string(state)] += n
	}
	return out
}

// FromDependencies converts dependency probes for transport.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}
