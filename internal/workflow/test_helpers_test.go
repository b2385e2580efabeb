package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/reporting"
)

type scriptedStep func(ctx context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)

// scriptedRunner answers commands by their joined argv. Unscripted commands succeed and echo their argv.
type scriptedRunner struct {
	mutex       sync.Mutex
	scripts     map[string]scriptedStep
	commands    []execshell.ShellCommand
	timeline    []string
	inFlight    int
	maxInFlight int
}

func newScriptedRunner(scripts map[string]scriptedStep) *scriptedRunner {
	if scripts == nil {
		scripts = map[string]scriptedStep{}
	}
	return &scriptedRunner{scripts: scripts}
}

func (runner *scriptedRunner) Run(ctx context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	key := strings.Join(command.Argv(), " ")

	runner.mutex.Lock()
	runner.commands = append(runner.commands, command)
	runner.timeline = append(runner.timeline, "start:"+key)
	runner.inFlight++
	if runner.inFlight > runner.maxInFlight {
		runner.maxInFlight = runner.inFlight
	}
	script := runner.scripts[key]
	runner.mutex.Unlock()

	defer func() {
		runner.mutex.Lock()
		runner.inFlight--
		runner.timeline = append(runner.timeline, "end:"+key)
		runner.mutex.Unlock()
	}()

	if script == nil {
		return execshell.ExecutionResult{StandardOutput: key + "\n"}, nil
	}
	return script(ctx, command)
}

func (runner *scriptedRunner) started() []string {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	started := make([]string, 0, len(runner.commands))
	for _, command := range runner.commands {
		started = append(started, strings.Join(command.Argv(), " "))
	}
	return started
}

func (runner *scriptedRunner) timelineIndex(entry string) int {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	for index, recorded := range runner.timeline {
		if recorded == entry {
			return index
		}
	}
	return -1
}

type unresolvedBinaryResolver struct{}

func (unresolvedBinaryResolver) Resolve(string) (string, bool) {
	return "", false
}

func exitWith(code int) scriptedStep {
	return func(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{ExitCode: code, StandardError: "exit status"}, nil
	}
}

func newTestExecutor(t *testing.T, runner execshell.CommandRunner, reporter reporting.SummaryReporter) *Executor {
	t.Helper()
	executor, creationError := NewExecutor(Dependencies{
		Logger:   zap.NewNop(),
		Runner:   runner,
		Resolver: unresolvedBinaryResolver{},
		Reporter: reporter,
	})
	require.NoError(t, creationError)
	return executor
}

func buildConfiguration(defaultJobs []string, jobList ...jobs.Job) jobs.Configuration {
	return jobs.NewConfiguration(defaultJobs, jobList, jobs.NewValues(), "")
}
