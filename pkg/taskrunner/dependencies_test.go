package taskrunner

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/reporting"
	"github.com/tyemirov/jobrun/internal/workflow"
)

type stubCommandRunner struct {
	exitCode int
}

func (runner stubCommandRunner) Run(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{ExitCode: runner.exitCode}, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(string) (string, bool) { return "", false }

func TestBuildDependenciesWiresReporterToErrorWriter(t *testing.T) {
	output := &bytes.Buffer{}
	errors := &bytes.Buffer{}
	config := DependenciesConfig{
		LoggerProvider:               func() *zap.Logger { return zap.NewNop() },
		HumanReadableLoggingProvider: func() bool { return true },
		Runner:                       stubCommandRunner{},
		Resolver:                     stubResolver{},
	}

	result, err := BuildDependencies(config, DependenciesOptions{Output: output, Errors: errors})
	require.NoError(t, err)
	require.True(t, result.Workflow.HumanReadableLogging)
	require.Same(t, result.Reporter, result.Workflow.Reporter)

	executor, creationError := workflow.NewExecutor(result.Workflow)
	require.NoError(t, creationError)
	configuration := jobs.NewConfiguration(nil, []jobs.Job{jobs.NewJob("build", []string{"make"}, nil)}, jobs.NewValues(), "")
	_, executeError := executor.Execute(context.Background(), configuration, []string{"build"}, workflow.RuntimeOptions{})
	require.NoError(t, executeError)

	require.Contains(t, errors.String(), "JOB_SUCCESS")
	require.Empty(t, output.String())
}

func TestBuildDependenciesDisablesEventLogging(t *testing.T) {
	errors := &bytes.Buffer{}
	result, err := BuildDependencies(DependenciesConfig{Runner: stubCommandRunner{}, Resolver: stubResolver{}}, DependenciesOptions{
		Output:              io.Discard,
		Errors:              errors,
		DisableEventLogging: true,
	})
	require.NoError(t, err)

	result.Reporter.Report(reporting.Event{Level: reporting.EventLevelInfo, Code: reporting.EventCodeJobStart, Job: "build", Message: "started"})
	require.Empty(t, errors.String())
	require.NotNil(t, result.Workflow.Logger)
}

func TestBuildDependenciesUsesCommandWriters(t *testing.T) {
	command := &cobra.Command{}
	output := &bytes.Buffer{}
	command.SetOut(output)
	command.SetErr(output)

	result, err := BuildDependencies(DependenciesConfig{}, DependenciesOptions{Command: command})
	require.NoError(t, err)
	require.Same(t, output, result.Output)
	require.NotNil(t, result.Workflow.Runner)
	require.NotNil(t, result.Workflow.Resolver)
}

func TestBuildDependenciesRequiresOutputWriter(t *testing.T) {
	_, err := BuildDependencies(DependenciesConfig{}, DependenciesOptions{Errors: &bytes.Buffer{}})
	require.ErrorIs(t, err, errOutputWriterMissing)
}

func TestBuildDependenciesRequiresErrorWriter(t *testing.T) {
	_, err := BuildDependencies(DependenciesConfig{}, DependenciesOptions{Output: &bytes.Buffer{}})
	require.ErrorIs(t, err, errErrorWriterMissing)
}
