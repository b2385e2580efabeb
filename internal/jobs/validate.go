package jobs

import (
	"fmt"
)

const (
	defaultOptionConstant          = "default"
	jobsOptionConstant             = "jobs"
	requiresOptionTemplateConstant = "jobs.%s.requires"
	undefinedJobMessageConstant    = "undefined job %q"
)

// Validate checks that every default and requires entry references a defined job.
func Validate(configuration Configuration) error {
	for _, name := range configuration.defaultJobs {
		if _, exists := configuration.jobs[name]; !exists {
			return newConfigurationError(defaultOptionConstant, undefinedJobMessageConstant, name)
		}
	}

	for _, name := range configuration.JobNames() {
		job := configuration.jobs[name]
		if job.Name() != name {
			return newConfigurationError(jobsOptionConstant, "job %q registered under name %q", job.Name(), name)
		}
		for _, requirement := range job.requires {
			if _, exists := configuration.jobs[requirement]; !exists {
				return newConfigurationError(fmt.Sprintf(requiresOptionTemplateConstant, name), undefinedJobMessageConstant, requirement)
			}
		}
	}

	return nil
}
