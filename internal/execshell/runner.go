package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const defaultWaitDelay = 5 * time.Second

// OSCommandRunner starts real processes with os/exec. Arguments are passed directly, without a shell.
type OSCommandRunner struct {
	// WaitDelay bounds how long output pipes are drained after the process is killed.
	WaitDelay time.Duration
}

// NewOSCommandRunner constructs a runner backed by the operating system.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{WaitDelay: defaultWaitDelay}
}

// Run starts the command, waits for it, and captures its output.
// A non-zero exit status is reported through ExecutionResult; the error is reserved for
// processes that could not be started or waited on.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	process := exec.CommandContext(executionContext, command.Name, command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	process.WaitDelay = runner.WaitDelay
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError

	runError := process.Run()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		if contextError := executionContext.Err(); contextError != nil {
			return result, contextError
		}
		return result, nil
	}

	return result, runError
}

func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]string, 0, len(base)+len(overrides))
	merged = append(merged, base...)
	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

// PathResolver resolves binaries against the PATH environment variable.
type PathResolver struct{}

// NewPathResolver constructs a resolver backed by exec.LookPath.
func NewPathResolver() PathResolver {
	return PathResolver{}
}

// Resolve returns the absolute path of name when it is found on the search path.
// Names containing a path separator are never searched and never resolved.
func (resolver PathResolver) Resolve(name string) (string, bool) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return "", false
	}
	located, lookupError := exec.LookPath(name)
	if lookupError != nil {
		return "", false
	}
	absolute, absoluteError := filepath.Abs(located)
	if absoluteError != nil {
		return located, true
	}
	return absolute, true
}
