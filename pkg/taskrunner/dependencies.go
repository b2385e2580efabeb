package taskrunner

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/render"
	"github.com/tyemirov/jobrun/internal/reporting"
	"github.com/tyemirov/jobrun/internal/workflow"
)

var (
	errOutputWriterMissing = errors.New("taskrunner.dependencies: output writer not provided")
	errErrorWriterMissing  = errors.New("taskrunner.dependencies: error writer not provided")
)

// DependenciesConfig captures providers required to build workflow dependencies.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	Runner                       execshell.CommandRunner
	Resolver                     render.BinaryResolver
}

// DependenciesOptions allows per-command overrides when resolving workflow dependencies.
type DependenciesOptions struct {
	Command             *cobra.Command
	Output              io.Writer
	Errors              io.Writer
	DisableEventLogging bool
}

// DependenciesResult exposes resolved collaborators along with their workflow wrapper.
type DependenciesResult struct {
	Workflow workflow.Dependencies
	Reporter *reporting.StructuredReporter
	Output   io.Writer
	Errors   io.Writer
}

// BuildDependencies resolves the logger, process runner, binary resolver, and event reporter.
// Job events go to the error writer so the output writer carries only the report.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	outputWriter := resolveWriter(options.Output, options.Command, true)
	if outputWriter == nil {
		return DependenciesResult{}, errOutputWriterMissing
	}
	errorWriter := resolveWriter(options.Errors, options.Command, false)
	if errorWriter == nil {
		return DependenciesResult{}, errErrorWriterMissing
	}

	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	runner := config.Runner
	if runner == nil {
		runner = execshell.NewOSCommandRunner()
	}
	resolver := config.Resolver
	if resolver == nil {
		resolver = execshell.NewPathResolver()
	}

	eventWriter := errorWriter
	if options.DisableEventLogging {
		eventWriter = io.Discard
	}
	reporter := reporting.NewStructuredReporter(eventWriter, eventWriter, reporting.WithConsoleFormat(humanReadable))

	return DependenciesResult{
		Workflow: workflow.Dependencies{
			Logger:               resolveLogger(config.LoggerProvider),
			Runner:               runner,
			Resolver:             resolver,
			Reporter:             reporter,
			HumanReadableLogging: humanReadable,
		},
		Reporter: reporter,
		Output:   outputWriter,
		Errors:   errorWriter,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command == nil {
		return nil
	}
	if useStdout {
		return command.OutOrStdout()
	}
	return command.ErrOrStderr()
}
