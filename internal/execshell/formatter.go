package execshell

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CommandMessageFormatter renders human-readable command lifecycle messages.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command that is about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf("Running %s", formatter.describe(command))
}

// BuildSuccessMessage describes a command that exited with status zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf("Completed %s", formatter.describe(command))
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	message := fmt.Sprintf("%s failed with exit code %d", formatter.describe(command), result.ExitCode)
	detail := firstLine(result.StandardError)
	if len(detail) == 0 {
		detail = firstLine(result.StandardOutput)
	}
	if len(detail) == 0 {
		return message
	}
	return fmt.Sprintf("%s: %s", message, detail)
}

// BuildExecutionFailureMessage describes a command that could not be run at all.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return fmt.Sprintf("%s failed: %v", formatter.describe(command), failure)
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) string {
	argv := command.Argv()
	argv[0] = filepath.Base(argv[0])
	description := strings.Join(argv, " ")
	if directory := strings.TrimSpace(command.Details.WorkingDirectory); len(directory) > 0 {
		description = fmt.Sprintf("%s (in %s)", description, directory)
	}
	return description
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if index := strings.IndexByte(trimmed, '\n'); index >= 0 {
		trimmed = strings.TrimSpace(trimmed[:index])
	}
	return trimmed
}
