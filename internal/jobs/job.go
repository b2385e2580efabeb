package jobs

import (
	"strings"
)

// Job describes a named sequence of command templates and the jobs it requires.
type Job struct {
	name     string
	run      []string
	requires []string
}

// NormalizeName trims and case-folds a job name.
func NormalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewJob constructs an immutable job. Requirement names are normalized and de-duplicated.
func NewJob(name string, run []string, requires []string) Job {
	copiedRun := make([]string, len(run))
	copy(copiedRun, run)

	normalizedRequires := make([]string, 0, len(requires))
	seenRequires := make(map[string]struct{}, len(requires))
	for _, requirement := range requires {
		normalizedRequirement := NormalizeName(requirement)
		if len(normalizedRequirement) == 0 {
			continue
		}
		if _, seen := seenRequires[normalizedRequirement]; seen {
			continue
		}
		seenRequires[normalizedRequirement] = struct{}{}
		normalizedRequires = append(normalizedRequires, normalizedRequirement)
	}

	return Job{
		name:     NormalizeName(name),
		run:      copiedRun,
		requires: normalizedRequires,
	}
}

// Name returns the normalized job name.
func (job Job) Name() string {
	return job.name
}

// Run returns a copy of the command templates in declared order.
func (job Job) Run() []string {
	copied := make([]string, len(job.run))
	copy(copied, job.run)
	return copied
}

// Requires returns a copy of the required job names.
func (job Job) Requires() []string {
	copied := make([]string, len(job.requires))
	copy(copied, job.requires)
	return copied
}
