package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/workflow"
)

const processJobsConfiguration = `values:
  greeting: hello from {who}
  who: jobrun
jobs:
  greet: sh -c "echo '{greeting}'"
  broken: sh -c "echo failing >&2; exit 3"
  after:
    run: echo unreachable
    requires: broken
  workdir: pwd
`

func TestApplicationRunsRealProcesses(t *testing.T) {
	if _, lookupError := exec.LookPath("sh"); lookupError != nil {
		t.Skip("sh not available")
	}

	directory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(directory, configurationFileNameConstant), []byte(processJobsConfiguration), 0o600))
	t.Setenv(configurationSearchPathEnvironmentVariableConstant, directory)

	application := NewApplication()
	application.workingDirectory = func() (string, error) { return directory, nil }
	stdout := &bytes.Buffer{}
	application.rootCommand.SetOut(stdout)
	application.rootCommand.SetErr(&bytes.Buffer{})

	runError := application.ExecuteWithArguments([]string{"-o", "json", "greet", "after", "workdir"})
	require.ErrorIs(t, runError, ErrRunFailed)

	var report workflow.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.False(t, report.Success)
	require.Len(t, report.Jobs, 4)

	greet, found := report.Job("greet")
	require.True(t, found)
	require.Equal(t, workflow.JobStateSucceeded, greet.State)
	require.Equal(t, "hello from {who}\n", greet.Results[0].Stdout)

	broken, found := report.Job("broken")
	require.True(t, found)
	require.Equal(t, workflow.JobStateFailed, broken.State)
	require.Equal(t, 3, broken.Results[0].ExitCode)
	require.Equal(t, "failing\n", broken.Results[0].Stderr)

	after, found := report.Job("after")
	require.True(t, found)
	require.Equal(t, workflow.JobStateSkipped, after.State)
	require.Empty(t, after.Results)

	workdir, found := report.Job("workdir")
	require.True(t, found)
	resolvedDirectory, resolveError := filepath.EvalSymlinks(directory)
	require.NoError(t, resolveError)
	require.Equal(t, resolvedDirectory+"\n", workdir.Results[0].Stdout)
}
