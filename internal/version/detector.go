// Package version reports the jobrun build version from module metadata or git tags.
package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
)

const (
	// Unknown is returned when no version source answers.
	Unknown                      = "unknown"
	develBuildVersion            = "devel"
	gitBinary                    = "git"
	gitTerminalPromptEnvironment = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabled    = "0"
)

var (
	repositoryRootArgv = []string{gitBinary, "rev-parse", "--show-toplevel"}
	describeCommands   = [][]string{
		{gitBinary, "describe", "--tags", "--exact-match"},
		{gitBinary, "describe", "--tags", "--long", "--dirty"},
	}
)

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// CommandExecutor runs an argv and returns its captured output.
type CommandExecutor interface {
	ExecuteArgv(ctx context.Context, argv []string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	Executor          CommandExecutor
	WorkingDirectory  string
}

// Detector resolves application version strings.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	executor          CommandExecutor
	workingDirectory  string
}

// NewDetector constructs a Detector, defaulting to runtime build info and a silent shell executor.
func NewDetector(dependencies Dependencies) (*Detector, error) {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	executor := dependencies.Executor
	if executor == nil {
		shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
		if creationError != nil {
			return nil, creationError
		}
		executor = shellExecutor
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		if currentDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	return &Detector{buildInfoProvider: provider, executor: executor, workingDirectory: workingDirectory}, nil
}

// Detect resolves the application version using the supplied dependencies.
func Detect(ctx context.Context, dependencies Dependencies) string {
	detector, detectorError := NewDetector(dependencies)
	if detectorError != nil {
		return Unknown
	}
	return detector.Version(ctx)
}

// Version prefers the module version stamped at build time, then an exact tag, then a long describe.
func (detector *Detector) Version(ctx context.Context) string {
	if detector == nil {
		return Unknown
	}
	if buildVersion := detector.buildVersion(); len(buildVersion) > 0 {
		return buildVersion
	}

	repositoryRoot := detector.workingDirectory
	if topLevel := detector.query(ctx, repositoryRootArgv, detector.workingDirectory); len(topLevel) > 0 {
		repositoryRoot = topLevel
	}
	for _, describe := range describeCommands {
		if described := detector.query(ctx, describe, repositoryRoot); len(described) > 0 {
			return described
		}
	}
	return Unknown
}

func (detector *Detector) buildVersion() string {
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}
	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if strings.EqualFold(trimmedVersion, develBuildVersion) || strings.EqualFold(trimmedVersion, "("+develBuildVersion+")") {
		return ""
	}
	return trimmedVersion
}

func (detector *Detector) query(ctx context.Context, argv []string, workingDirectory string) string {
	if detector.executor == nil {
		return ""
	}
	result, executionError := detector.executor.ExecuteArgv(ctx, argv, execshell.CommandDetails{
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironment: gitTerminalPromptDisabled},
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(result.StandardOutput)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

var _ CommandExecutor = (*execshell.ShellExecutor)(nil)
