package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/jobs"
)

const (
	stepCancelledMessageTemplate = "step cancelled: %v"
	emptyStepCommandMessage      = "step has no command"
	pathEnvironmentVariable      = "PATH"
)

// StepPolicy decides whether a completed step counts as a success.
type StepPolicy interface {
	Succeeded(result jobs.Result) bool
}

// ExitCodePolicy treats exit status zero as success and nothing else.
type ExitCodePolicy struct{}

// Succeeded reports whether the step exited with status zero.
func (ExitCodePolicy) Succeeded(result jobs.Result) bool {
	return result.Success()
}

// StepPolicyFunc adapts a function to StepPolicy.
type StepPolicyFunc func(result jobs.Result) bool

// Succeeded calls the function.
func (policy StepPolicyFunc) Succeeded(result jobs.Result) bool {
	return policy(result)
}

// StepExecutor runs rendered steps as subprocesses and converts every outcome into a Result.
type StepExecutor struct {
	shellExecutor *execshell.ShellExecutor
	now           func() time.Time
}

// NewStepExecutor wraps a shell executor.
func NewStepExecutor(shellExecutor *execshell.ShellExecutor) StepExecutor {
	return StepExecutor{shellExecutor: shellExecutor, now: time.Now}
}

// Execute runs the step in the configuration root with its context environment and waits for it to exit.
// Start failures and cancellations are reported through sentinel exit codes, never as errors.
func (executor StepExecutor) Execute(executionContext context.Context, step jobs.Step) jobs.Result {
	command := append([]string(nil), step.Command...)
	contextName := step.Context.Name()
	if len(strings.TrimSpace(step.Binary())) == 0 {
		return jobs.Result{Command: command, Context: contextName, ExitCode: jobs.ExitCodeStartFailure, Stderr: emptyStepCommandMessage}
	}

	root := step.Configuration.Root()
	startTime := executor.now()
	executionResult, executionError := executor.shellExecutor.Execute(executionContext, execshell.ShellCommand{
		Name: step.Binary(),
		Details: execshell.CommandDetails{
			Arguments:            step.Arguments(),
			WorkingDirectory:     root,
			EnvironmentVariables: step.Context.CommandEnvironment(root, os.Getenv(pathEnvironmentVariable)),
		},
	})
	result := jobs.Result{
		Command:  command,
		Context:  contextName,
		ExitCode: executionResult.ExitCode,
		Stdout:   executionResult.StandardOutput,
		Stderr:   executionResult.StandardError,
		Duration: executor.now().Sub(startTime),
	}

	var commandFailure execshell.CommandFailedError
	if executionError == nil || errors.As(executionError, &commandFailure) {
		return result
	}

	cause := executionError
	var runnerFailure execshell.CommandExecutionError
	if errors.As(executionError, &runnerFailure) && runnerFailure.Cause != nil {
		cause = runnerFailure.Cause
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		result.ExitCode = jobs.ExitCodeCancelled
		result.Stderr = appendLine(result.Stderr, fmt.Sprintf(stepCancelledMessageTemplate, cause))
		return result
	}
	result.ExitCode = jobs.ExitCodeStartFailure
	result.Stderr = appendLine(result.Stderr, cause.Error())
	return result
}

func templateFailureResult(template string, runtimeContext jobs.Context, renderError error) jobs.Result {
	return jobs.Result{
		Command:  []string{template},
		Context:  runtimeContext.Name(),
		ExitCode: jobs.ExitCodeTemplateFailure,
		Stderr:   renderError.Error(),
	}
}

func appendLine(text string, line string) string {
	if len(text) == 0 {
		return line
	}
	if strings.HasSuffix(text, "\n") {
		return text + line
	}
	return text + "\n" + line
}
