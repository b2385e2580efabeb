package jobs

import (
	"time"
)

// Sentinel exit codes recorded when a step never produced a real process exit status.
const (
	ExitCodeTemplateFailure = 126
	ExitCodeStartFailure    = 127
	ExitCodeCancelled       = 130
)

// Step is one rendered command ready for execution.
type Step struct {
	Command       []string
	Template      string
	Configuration Configuration
	Context       Context
}

// Binary returns the first command token.
func (step Step) Binary() string {
	if len(step.Command) == 0 {
		return ""
	}
	return step.Command[0]
}

// Arguments returns the tokens following the binary.
func (step Step) Arguments() []string {
	if len(step.Command) <= 1 {
		return nil
	}
	arguments := make([]string, len(step.Command)-1)
	copy(arguments, step.Command[1:])
	return arguments
}

// Result captures the outcome of executing one step.
type Result struct {
	Command  []string      `json:"command" yaml:"command"`
	Context  string        `json:"context,omitempty" yaml:"context,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Stdout   string        `json:"stdout" yaml:"stdout"`
	Stderr   string        `json:"stderr" yaml:"stderr"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// Success reports whether the step exited with status zero.
func (result Result) Success() bool {
	return result.ExitCode == 0
}
