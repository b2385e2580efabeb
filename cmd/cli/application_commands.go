package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/utils"
	flagutils "github.com/tyemirov/jobrun/internal/utils/flags"
	"github.com/tyemirov/jobrun/internal/version"
	"github.com/tyemirov/jobrun/internal/workflow"
	"github.com/tyemirov/jobrun/pkg/taskrunner"
)

const (
	listCommandUseConstant                   = "list"
	listCommandShortDescriptionConstant      = "List configured jobs, their requirements, and the default selection"
	initCommandUseConstant                   = "init"
	initCommandShortDescriptionConstant      = "Write a starter jobrun.yaml to the current directory"
	initForceFlagNameConstant                = "force"
	initForceFlagUsageConstant               = "Overwrite an existing jobs file"
	versionCommandUseConstant                = "version"
	versionCommandShortDescriptionConstant   = "Print the jobrun version"
	listRequiresTemplateConstant             = "%s (requires %s)\n"
	listDefaultTemplateConstant              = "default: %s\n"
	listNoDefaultConstant                    = "(none)"
	runStartedMessageConstant                = "run requested"
	planRequestedMessageConstant             = "plan requested"
	initWrittenMessageConstant               = "jobs file created"
	initWrittenConsoleTemplateConstant       = "wrote %s\n"
	selectedFieldConstant                    = "selected"
	workersFieldConstant                     = "workers"
	outputFieldConstant                      = "output"
	hardCancelFieldConstant                  = "hard_cancel"
	contextsFieldConstant                    = "contexts"
	runFailedMessageConstant                 = "one or more jobs did not succeed"
	configurationFilePermissionConstant      = 0o644
	configurationDirectoryPermissionConstant = 0o755
	initExistingFileTemplateConstant         = "jobs file already exists at %s (use --force to overwrite)"
	initExistingDirectoryTemplateConstant    = "jobs file path %s is a directory"
	initWriteErrorTemplateConstant           = "unable to write jobs file %s: %w"
	initDirectoryErrorTemplateConstant       = "unable to ensure directory %s: %w"
)

// ErrRunFailed is returned when the run completed but at least one job failed or was skipped.
var ErrRunFailed = errors.New(runFailedMessageConstant)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	listCommand := &cobra.Command{
		Use:           listCommandUseConstant,
		Short:         listCommandShortDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if application.versionHandled {
				return nil
			}
			return application.listJobs(command)
		},
	}

	initCommand := &cobra.Command{
		Use:           initCommandUseConstant,
		Short:         initCommandShortDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if application.versionHandled {
				return nil
			}
			return application.writeStarterConfiguration(command)
		},
	}
	initCommand.Flags().BoolVar(&application.initForced, initForceFlagNameConstant, false, initForceFlagUsageConstant)

	versionCommand := &cobra.Command{
		Use:           versionCommandUseConstant,
		Short:         versionCommandShortDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if application.versionHandled {
				return nil
			}
			application.printVersion(command)
			return nil
		},
	}

	cobraCommand.AddCommand(listCommand, initCommand, versionCommand)
}

func (application *Application) runJobs(command *cobra.Command, arguments []string) error {
	runFlags, runFlagsError := flagutils.ResolveRunFlags(command)
	if runFlagsError != nil {
		return runFlagsError
	}

	configuration, configurationError := application.buildJobConfiguration(runFlags.Variables)
	if configurationError != nil {
		return configurationError
	}

	outputValue := application.configuration.Common.Output
	if runFlags.OutputSet {
		outputValue = runFlags.Output
	}
	reportFormat, formatError := workflow.ParseReportFormat(outputValue)
	if formatError != nil {
		return formatError
	}

	workers, workersError := application.resolveWorkers(runFlags.Workers, runFlags.WorkersSet)
	if workersError != nil {
		return workersError
	}

	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider:               func() *zap.Logger { return application.logger },
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			Runner:                       application.commandRunner,
			Resolver:                     application.binaryResolver,
		},
		taskrunner.DependenciesOptions{Command: command, DisableEventLogging: runFlags.DryRun},
	)
	if dependenciesError != nil {
		return dependenciesError
	}
	output := utils.NewFlushingWriter(dependencies.Output)

	if runFlags.DryRun {
		application.logger.Info(planRequestedMessageConstant, zap.Strings(selectedFieldConstant, arguments))
		scheduler, schedulerError := workflow.NewExecutor(dependencies.Workflow)
		if schedulerError != nil {
			return schedulerError
		}
		plan, planError := scheduler.Plan(configuration, arguments)
		if planError != nil {
			return planError
		}
		return workflow.FormatPlan(output, plan, configuration, scheduler.Renderer())
	}

	configurationFilePath, _ := application.commandContextAccessor.ConfigurationFilePath(command.Context())
	contextNames := make([]string, 0)
	for _, runtimeContext := range configuration.Contexts() {
		if name := runtimeContext.Name(); len(name) > 0 {
			contextNames = append(contextNames, name)
		}
	}
	application.logger.Info(
		runStartedMessageConstant,
		zap.String(configurationFileFieldConstant, configurationFilePath),
		zap.Strings(selectedFieldConstant, arguments),
		zap.Strings(contextsFieldConstant, contextNames),
		zap.Int(workersFieldConstant, workers),
		zap.String(outputFieldConstant, string(reportFormat)),
		zap.Bool(hardCancelFieldConstant, runFlags.HardCancel),
	)

	runContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	// A second interrupt falls through to the default handler and terminates the process.
	context.AfterFunc(runContext, stopSignals)

	executor := taskrunner.Resolve(application.executorFactory, dependencies.Workflow, dependencies.Errors)
	report, runError := executor.Run(runContext, configuration, arguments, workflow.RuntimeOptions{
		MaxWorkers: workers,
		HardCancel: runFlags.HardCancel,
	})
	if runError != nil {
		return runError
	}

	if formatError := workflow.FormatReport(output, report, reportFormat); formatError != nil {
		return formatError
	}
	if taskrunner.ExitCode(report, nil) != 0 {
		return ErrRunFailed
	}
	return nil
}

func (application *Application) listJobs(command *cobra.Command) error {
	configuration, configurationError := application.buildJobConfiguration(nil)
	if configurationError != nil {
		return configurationError
	}
	return writeJobList(command.OutOrStdout(), configuration)
}

func writeJobList(writer io.Writer, configuration jobs.Configuration) error {
	var builder strings.Builder
	for _, name := range configuration.JobNames() {
		job, _ := configuration.Job(name)
		if requires := job.Requires(); len(requires) > 0 {
			fmt.Fprintf(&builder, listRequiresTemplateConstant, name, strings.Join(requires, ", "))
			continue
		}
		builder.WriteString(name + "\n")
	}

	defaultJobs := strings.Join(configuration.Default(), ", ")
	if len(defaultJobs) == 0 {
		defaultJobs = listNoDefaultConstant
	}
	fmt.Fprintf(&builder, listDefaultTemplateConstant, defaultJobs)

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func (application *Application) writeStarterConfiguration(command *cobra.Command) error {
	workingDirectory, workingDirectoryError := application.workingDirectory()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}

	targetPath := filepath.Join(workingDirectory, configurationFileNameConstant)
	if trimmedPath := strings.TrimSpace(application.configurationFilePath); len(trimmedPath) > 0 {
		targetPath = trimmedPath
	}

	if writeError := writeConfigurationFile(targetPath, EmbeddedStarterConfiguration(), application.initForced); writeError != nil {
		return writeError
	}

	application.logger.Info(initWrittenMessageConstant, zap.String(configurationFileFieldConstant, targetPath))
	_, printError := fmt.Fprintf(command.OutOrStdout(), initWrittenConsoleTemplateConstant, targetPath)
	return printError
}

func writeConfigurationFile(targetPath string, content []byte, force bool) error {
	directoryPath := filepath.Dir(targetPath)
	if createError := os.MkdirAll(directoryPath, configurationDirectoryPermissionConstant); createError != nil {
		return fmt.Errorf(initDirectoryErrorTemplateConstant, directoryPath, createError)
	}

	fileInfo, statError := os.Stat(targetPath)
	switch {
	case statError == nil:
		if fileInfo.IsDir() {
			return fmt.Errorf(initExistingDirectoryTemplateConstant, targetPath)
		}
		if !force {
			return fmt.Errorf(initExistingFileTemplateConstant, targetPath)
		}
	case errors.Is(statError, os.ErrNotExist):
	default:
		return fmt.Errorf(initWriteErrorTemplateConstant, targetPath, statError)
	}

	if writeError := os.WriteFile(targetPath, content, configurationFilePermissionConstant); writeError != nil {
		return fmt.Errorf(initWriteErrorTemplateConstant, targetPath, writeError)
	}
	return nil
}

func (application *Application) resolveVersion(ctx context.Context) string {
	return version.Detect(ctx, version.Dependencies{})
}

func (application *Application) printVersion(command *cobra.Command) {
	ctx := context.Background()
	writer := io.Writer(os.Stdout)
	if command != nil {
		if commandContext := command.Context(); commandContext != nil {
			ctx = commandContext
		}
		writer = command.OutOrStdout()
	}
	fmt.Fprintln(writer, strings.TrimSpace(application.versionResolver(ctx)))
}
