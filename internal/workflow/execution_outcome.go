package workflow

import (
	"time"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/reporting"
)

// RunReport aggregates the outcome of one run.
type RunReport struct {
	RunID     string                `json:"run_id" yaml:"run_id"`
	StartTime time.Time             `json:"start_time" yaml:"start_time"`
	EndTime   time.Time             `json:"end_time" yaml:"end_time"`
	Duration  time.Duration         `json:"duration_ns" yaml:"duration"`
	Stages    [][]string            `json:"stages" yaml:"stages"`
	Jobs      []JobReport           `json:"jobs" yaml:"jobs"`
	Success   bool                  `json:"success" yaml:"success"`
	Summary   reporting.SummaryData `json:"summary" yaml:"summary"`
}

// JobReport is the terminal state of one job and the results of the steps it ran.
type JobReport struct {
	Name       string        `json:"name" yaml:"name"`
	State      JobState      `json:"state" yaml:"state"`
	Results    []jobs.Result `json:"results" yaml:"results"`
	SkipReason string        `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Cancelled  bool          `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration"`
}

// Succeeded reports whether the job reached the succeeded state.
func (report JobReport) Succeeded() bool {
	return report.State == JobStateSucceeded
}

// Job returns the report for the named job.
func (report RunReport) Job(name string) (JobReport, bool) {
	normalized := jobs.NormalizeName(name)
	for _, jobReport := range report.Jobs {
		if jobReport.Name == normalized {
			return jobReport, true
		}
	}
	return JobReport{}, false
}

// Counts tallies jobs per terminal state.
func (report RunReport) Counts() map[JobState]int {
	counts := make(map[JobState]int, 3)
	for _, jobReport := range report.Jobs {
		counts[jobReport.State]++
	}
	return counts
}
