package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/reporting"
	"github.com/tyemirov/jobrun/internal/workflow"
)

type fakeExecutor struct {
	report workflow.RunReport
	err    error
}

func (executor fakeExecutor) Run(context.Context, jobs.Configuration, []string, workflow.RuntimeOptions) (workflow.RunReport, error) {
	return executor.report, executor.err
}

func twoJobReport() workflow.RunReport {
	return workflow.RunReport{
		Jobs: []workflow.JobReport{
			{Name: "build", State: workflow.JobStateSucceeded},
			{Name: "test", State: workflow.JobStateFailed},
		},
		Summary: reporting.SummaryData{
			TotalJobs:            2,
			EventCounts:          map[string]int{reporting.EventCodeJobSuccess: 1, reporting.EventCodeJobFailure: 1},
			LevelCounts:          map[reporting.EventLevel]int{reporting.EventLevelError: 1},
			DurationHuman:        "100ms",
			DurationMilliseconds: 100,
		},
	}
}

func TestRenderSummaryLineSkipsEmptyRun(t *testing.T) {
	require.Equal(t, "", RenderSummaryLine(workflow.RunReport{}))
}

func TestRenderSummaryLineFormatsCounts(t *testing.T) {
	summary := RenderSummaryLine(twoJobReport())
	require.Equal(t,
		"Summary: total.jobs=2 succeeded=1 failed=1 skipped=0 JOB_FAILURE=1 JOB_SUCCESS=1 WARN=0 ERROR=1 duration_human=100ms duration_ms=100",
		summary,
	)
}

func TestSummaryExecutorPrintsSummary(t *testing.T) {
	buffer := &bytes.Buffer{}
	executor := summaryExecutor{delegate: fakeExecutor{report: twoJobReport()}, writer: buffer}

	report, err := executor.Run(context.Background(), jobs.Configuration{}, nil, workflow.RuntimeOptions{})
	require.NoError(t, err)
	require.Len(t, report.Jobs, 2)
	require.Contains(t, buffer.String(), "Summary: total.jobs=2")
}

func TestSummaryExecutorSilentOnStructuralError(t *testing.T) {
	buffer := &bytes.Buffer{}
	executor := summaryExecutor{
		delegate: fakeExecutor{report: twoJobReport(), err: workflow.UnknownJobError{Name: "deploy"}},
		writer:   buffer,
	}

	_, err := executor.Run(context.Background(), jobs.Configuration{}, nil, workflow.RuntimeOptions{})
	require.Error(t, err)
	require.Empty(t, buffer.String())
}

func TestResolvePrefersFactory(t *testing.T) {
	buffer := &bytes.Buffer{}
	factoryCalls := 0
	factory := func(workflow.Dependencies) Executor {
		factoryCalls++
		return fakeExecutor{report: twoJobReport()}
	}

	executor := Resolve(factory, workflow.Dependencies{}, buffer)
	_, err := executor.Run(context.Background(), jobs.Configuration{}, nil, workflow.RuntimeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, factoryCalls)
	require.NotEmpty(t, buffer.String())
}

func TestResolveFallsBackToScheduler(t *testing.T) {
	configuration := jobs.NewConfiguration(nil, []jobs.Job{jobs.NewJob("build", []string{"make"}, nil)}, jobs.NewValues(), "")
	executor := Resolve(func(workflow.Dependencies) Executor { return nil }, workflow.Dependencies{
		Runner:   stubCommandRunner{},
		Resolver: stubResolver{},
	}, nil)

	report, err := executor.Run(context.Background(), configuration, []string{"build"}, workflow.RuntimeOptions{})
	require.NoError(t, err)
	require.True(t, report.Success)
	require.Equal(t, workflow.JobStateSucceeded, report.Jobs[0].State)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(workflow.RunReport{Success: true}, nil))
	require.Equal(t, 1, ExitCode(workflow.RunReport{Success: false}, nil))
	require.Equal(t, 1, ExitCode(workflow.RunReport{Success: true}, errors.New("cycle")))
}
