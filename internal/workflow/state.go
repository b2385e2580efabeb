package workflow

import (
	"fmt"
)

// JobState is the lifecycle position of one job within a run.
type JobState string

// Job lifecycle states.
const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateSkipped   JobState = "skipped"
)

var allowedJobTransitions = map[JobState]map[JobState]struct{}{
	JobStatePending: {
		JobStateRunning: {},
		JobStateSkipped: {},
	},
	JobStateRunning: {
		JobStateSucceeded: {},
		JobStateFailed:    {},
	},
}

// IsTerminal reports whether no further transitions are possible.
func (state JobState) IsTerminal() bool {
	switch state {
	case JobStateSucceeded, JobStateFailed, JobStateSkipped:
		return true
	default:
		return false
	}
}

// jobStateTable maps job names to states. Callers serialize access.
type jobStateTable struct {
	states map[string]JobState
}

func newJobStateTable(names []string) *jobStateTable {
	states := make(map[string]JobState, len(names))
	for _, name := range names {
		states[name] = JobStatePending
	}
	return &jobStateTable{states: states}
}

func (table *jobStateTable) state(name string) JobState {
	return table.states[name]
}

func (table *jobStateTable) transition(name string, next JobState) error {
	current, exists := table.states[name]
	if !exists {
		return fmt.Errorf("unknown job in state table: %q", name)
	}
	if _, allowed := allowedJobTransitions[current][next]; !allowed {
		return fmt.Errorf("invalid transition for job %q: %s -> %s", name, current, next)
	}
	table.states[name] = next
	return nil
}

func (table *jobStateTable) allTerminal() bool {
	for _, state := range table.states {
		if !state.IsTerminal() {
			return false
		}
	}
	return true
}
