package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/render"
)

type countingResolver struct {
	lookups []string
}

func (resolver *countingResolver) Resolve(name string) (string, bool) {
	resolver.lookups = append(resolver.lookups, name)
	return "", false
}

func TestPrepareJobRendersLazily(t *testing.T) {
	resolver := &countingResolver{}
	job := jobs.NewJob("lint", []string{"ruff check", "mypy src", "pytest"}, nil)

	for step, renderError := range PrepareJob(job, buildConfiguration(nil, job), jobs.Context{}, render.NewRenderer(resolver)) {
		require.NoError(t, renderError)
		require.Equal(t, []string{"ruff", "check"}, step.Command)
		break
	}
	require.Equal(t, []string{"ruff"}, resolver.lookups)
}

func TestPrepareJobYieldsTemplateErrorsInOrder(t *testing.T) {
	job := jobs.NewJob("greet", []string{"echo hi", "echo {name}", "echo bye"}, nil)

	var commands [][]string
	var failures []error
	for step, renderError := range PrepareJob(job, buildConfiguration(nil, job), jobs.Context{}, render.NewRenderer(nil)) {
		commands = append(commands, step.Command)
		failures = append(failures, renderError)
	}

	require.Equal(t, [][]string{{"echo", "hi"}, nil, {"echo", "bye"}}, commands)
	require.NoError(t, failures[0])
	require.True(t, render.IsTemplateError(failures[1]))
	require.NoError(t, failures[2])
}

func TestPrepareJobEmptyRun(t *testing.T) {
	job := jobs.NewJob("noop", nil, nil)
	count := 0
	for range PrepareJob(job, buildConfiguration(nil, job), jobs.Context{}, render.NewRenderer(nil)) {
		count++
	}
	require.Zero(t, count)
}
