package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/workflow"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
)

// Executor runs selected jobs from a configuration.
type Executor interface {
	Run(ctx context.Context, configuration jobs.Configuration, selected []string, options workflow.RuntimeOptions) (workflow.RunReport, error)
}

// Factory constructs an Executor given workflow dependencies.
type Factory func(workflow.Dependencies) Executor

type workflowExecutor struct {
	dependencies workflow.Dependencies
}

func (executor workflowExecutor) Run(ctx context.Context, configuration jobs.Configuration, selected []string, options workflow.RuntimeOptions) (workflow.RunReport, error) {
	scheduler, creationError := workflow.NewExecutor(executor.dependencies)
	if creationError != nil {
		return workflow.RunReport{}, fmt.Errorf("taskrunner.executor: %w", creationError)
	}
	return scheduler.Execute(ctx, configuration, selected, options)
}

// Resolve returns either the provided factory result or the default scheduler, decorated so
// a summary line is written to summaryWriter after every run.
func Resolve(factory Factory, dependencies workflow.Dependencies, summaryWriter io.Writer) Executor {
	var base Executor
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		base = workflowExecutor{dependencies: dependencies}
	}
	return summaryExecutor{delegate: base, writer: summaryWriter}
}

type summaryExecutor struct {
	delegate Executor
	writer   io.Writer
}

func (executor summaryExecutor) Run(ctx context.Context, configuration jobs.Configuration, selected []string, options workflow.RuntimeOptions) (workflow.RunReport, error) {
	report, err := executor.delegate.Run(ctx, configuration, selected, options)
	if executor.writer != nil && err == nil {
		if summary := RenderSummaryLine(report); len(strings.TrimSpace(summary)) > 0 {
			fmt.Fprintln(executor.writer, summary)
		}
	}
	return report, err
}

// Run executes the selection with OS-backed defaults and no event output.
func Run(ctx context.Context, configuration jobs.Configuration, selected []string) (workflow.RunReport, error) {
	return workflowExecutor{}.Run(ctx, configuration, selected, workflow.RuntimeOptions{})
}

// ExitCode maps a run outcome to a process exit status: zero only when the run completed and every job succeeded.
func ExitCode(report workflow.RunReport, err error) int {
	if err != nil || !report.Success {
		return exitCodeFailure
	}
	return exitCodeSuccess
}
