package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/render"
	"github.com/tyemirov/jobrun/internal/utils"
	flagutils "github.com/tyemirov/jobrun/internal/utils/flags"
	rootutils "github.com/tyemirov/jobrun/internal/utils/roots"
	"github.com/tyemirov/jobrun/internal/workflow"
	"github.com/tyemirov/jobrun/pkg/taskrunner"
)

const (
	applicationNameConstant                            = "jobrun"
	applicationUseConstant                             = applicationNameConstant + " [job...]"
	applicationShortDescriptionConstant                = "Run project jobs and their dependencies"
	applicationLongDescriptionConstant                 = "jobrun reads jobs from jobrun.yaml, resolves the jobs they require, and runs independent jobs concurrently. With no arguments the default jobs run."
	configFileFlagNameConstant                         = "config"
	configFileFlagUsageConstant                        = "Path to the jobs file (YAML, TOML, or JSON). Defaults to jobrun.* in the project root."
	logLevelFlagNameConstant                           = "log-level"
	logLevelFlagUsageConstant                          = "Override the configured log level."
	logFormatFlagNameConstant                          = "log-format"
	logFormatFlagUsageConstant                         = "Override the configured log format."
	versionFlagNameConstant                            = "version"
	versionFlagUsageConstant                           = "Print the jobrun version and exit"
	commonConfigurationKeyConstant                     = "common"
	commonLogLevelConfigKeyConstant                    = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant                   = commonConfigurationKeyConstant + ".log_format"
	commonWorkersConfigKeyConstant                     = commonConfigurationKeyConstant + ".workers"
	commonOutputConfigKeyConstant                      = commonConfigurationKeyConstant + ".output"
	environmentPrefixConstant                          = "JOBRUN"
	configurationNameConstant                          = "jobrun"
	configurationTypeConstant                          = "yaml"
	configurationFileNameConstant                      = configurationNameConstant + "." + configurationTypeConstant
	defaultConfigurationSearchPathConstant             = "."
	configurationSearchPathEnvironmentVariableConstant = "JOBRUN_CONFIG_SEARCH_PATH"
	configurationLoadErrorTemplateConstant             = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant                = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant                    = "unable to flush logger: %w"
	workingDirectoryErrorTemplateConstant              = "unable to determine working directory: %w"
	configurationInitializedMessageConstant            = "configuration initialized"
	configurationInitializedConsoleTemplateConstant    = "%s | log level=%s | log format=%s | config file=%s | project root=%s"
	configurationLogLevelFieldConstant                 = "log_level"
	configurationLogFormatFieldConstant                = "log_format"
	configurationFileFieldConstant                     = "config_file"
	projectRootFieldConstant                           = "project_root"
)

var supportedOutputFormats = []string{
	string(workflow.ReportFormatText),
	string(workflow.ReportFormatYAML),
	string(workflow.ReportFormatJSON),
}

type loggerOutputsFactory interface {
	CreateLoggerOutputs(utils.LogLevel, utils.LogFormat) (utils.LoggerOutputs, error)
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          loggerOutputsFactory
	logger                 *zap.Logger
	consoleLogger          *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	versionFlag            bool
	projectRoot            string
	commandContextAccessor utils.CommandContextAccessor
	commandRunner          execshell.CommandRunner
	binaryResolver         render.BinaryResolver
	executorFactory        taskrunner.Factory
	versionResolver        func(context.Context) string
	workingDirectory       func() (string, error)
	exitFunction           func(int)
	initForced             bool
	versionHandled         bool
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	application := &Application{
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		consoleLogger:          zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		workingDirectory:       os.Getwd,
		exitFunction:           os.Exit,
	}
	application.versionResolver = application.resolveVersion

	application.configurationLoader = utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		application.resolveConfigurationSearchPaths(),
	)
	embeddedConfigurationData, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	application.configurationLoader.SetEmbeddedConfiguration(embeddedConfigurationData, embeddedConfigurationType)

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.versionRequested(command) {
				application.printVersion(command)
				application.versionHandled = true
				application.exitFunction(0)
				return nil
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			if application.versionHandled {
				return nil
			}
			return application.runJobs(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flagutils.FormatChoiceUsage(
		string(utils.LogLevelError),
		[]string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)},
		logLevelFlagUsageConstant,
	))
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flagutils.FormatChoiceUsage(
		string(utils.LogFormatConsole),
		[]string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)},
		logFormatFlagUsageConstant,
	))
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlag, versionFlagNameConstant, false, versionFlagUsageConstant)
	flagutils.BindRunFlags(cobraCommand, flagutils.RunDefaults{}, supportedOutputFormats)

	application.registerCommands(cobraCommand)
	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy against the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy against arguments and flushes the loggers.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(arguments)

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) resolveConfigurationSearchPaths() []string {
	overrideValue := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentVariableConstant))
	if len(overrideValue) > 0 {
		cleanedPaths := make([]string, 0)
		for _, pathCandidate := range filepath.SplitList(overrideValue) {
			if trimmedCandidate := strings.TrimSpace(pathCandidate); len(trimmedCandidate) > 0 {
				cleanedPaths = append(cleanedPaths, trimmedCandidate)
			}
		}
		if len(cleanedPaths) > 0 {
			return cleanedPaths
		}
	}

	return []string{application.discoverProjectRoot()}
}

func (application *Application) discoverProjectRoot() string {
	workingDirectory, workingDirectoryError := application.workingDirectory()
	if workingDirectoryError != nil {
		return defaultConfigurationSearchPathConstant
	}
	markers := rootutils.ConfigurationMarkers(configurationNameConstant, utils.ConfigurationFileExtensions)
	projectRoot, discoverError := rootutils.Discover(workingDirectory, markers)
	if discoverError != nil {
		return workingDirectory
	}
	return projectRoot
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelError),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
		commonWorkersConfigKeyConstant:   0,
		commonOutputConfigKeyConstant:    string(workflow.ReportFormatText),
	}

	configurationFilePath := application.configurationFilePath
	if command != nil && command.Name() == initCommandUseConstant {
		configurationFilePath = ""
	}

	application.configuration = ApplicationConfiguration{}
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = loggerOutputs.DiagnosticLogger
	if application.logger == nil {
		application.logger = zap.NewNop()
	}
	application.consoleLogger = loggerOutputs.ConsoleLogger
	if application.consoleLogger == nil {
		application.consoleLogger = zap.NewNop()
	}

	workingDirectory, workingDirectoryError := application.workingDirectory()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}
	fallbackRoot := application.discoverProjectRoot()
	if len(fallbackRoot) == 0 {
		fallbackRoot = workingDirectory
	}
	projectRoot, rootError := rootutils.FromConfigurationFile(application.configurationMetadata.ConfigFileUsed, fallbackRoot)
	if rootError != nil {
		return rootError
	}
	application.projectRoot = projectRoot

	application.logConfigurationInitialization()

	if command != nil {
		runFlags, runFlagsError := flagutils.CollectRunFlags(command)
		if runFlagsError != nil {
			return runFlagsError
		}

		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
		updatedContext = application.commandContextAccessor.WithProjectRoot(updatedContext, application.projectRoot)
		updatedContext = application.commandContextAccessor.WithRunFlags(updatedContext, runFlags)

		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// ConfigFileUsed returns the configuration file path used during initialization.
func (application *Application) ConfigFileUsed() string {
	return application.configurationMetadata.ConfigFileUsed
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) logConfigurationInitialization() {
	if !strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogLevel), string(utils.LogLevelDebug)) {
		return
	}

	if application.humanReadableLoggingEnabled() {
		application.consoleLogger.Debug(fmt.Sprintf(
			configurationInitializedConsoleTemplateConstant,
			configurationInitializedMessageConstant,
			application.configuration.Common.LogLevel,
			application.configuration.Common.LogFormat,
			application.configurationMetadata.ConfigFileUsed,
			application.projectRoot,
		))
		return
	}

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(projectRootFieldConstant, application.projectRoot),
	)
}

func (application *Application) versionRequested(command *cobra.Command) bool {
	if command == nil {
		return application.versionFlag
	}
	if flagValue, flagChanged, flagError := flagutils.BoolFlag(command, versionFlagNameConstant); flagError == nil && flagChanged {
		return flagValue
	}
	return application.versionFlag
}

func (application *Application) flushLogger() error {
	if syncError := syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return syncLoggerInstance(application.consoleLogger)
}

func syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.EBADF):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
