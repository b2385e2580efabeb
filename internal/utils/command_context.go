package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	projectRootContextKeyConstant           = commandContextKey("projectRoot")
	runFlagsContextKeyConstant              = commandContextKey("runFlags")
)

type commandContextKey string

// RunFlags captures run modifiers derived from CLI flags. The *Set fields report whether the flag was
// given explicitly so configuration defaults can apply otherwise.
type RunFlags struct {
	Workers    int
	WorkersSet bool
	Output     string
	OutputSet  bool
	DryRun     bool
	HardCancel bool
	Variables  map[string]string
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// WithProjectRoot attaches the project root directory when one is known.
func (accessor CommandContextAccessor) WithProjectRoot(parentContext context.Context, projectRoot string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	trimmedRoot := strings.TrimSpace(projectRoot)
	if len(trimmedRoot) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, projectRootContextKeyConstant, trimmedRoot)
}

// WithRunFlags attaches run flag values to the provided context.
func (accessor CommandContextAccessor) WithRunFlags(parentContext context.Context, flags RunFlags) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	copied := flags
	if flags.Variables != nil {
		copied.Variables = make(map[string]string, len(flags.Variables))
		for key, value := range flags.Variables {
			copied.Variables[key] = value
		}
	}
	return context.WithValue(parentContext, runFlagsContextKeyConstant, copied)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// ProjectRoot extracts the project root directory from the provided context.
func (accessor CommandContextAccessor) ProjectRoot(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, valueAvailable := executionContext.Value(projectRootContextKeyConstant).(string)
	return value, valueAvailable
}

// RunFlags extracts run flag values from the provided context.
func (accessor CommandContextAccessor) RunFlags(executionContext context.Context) (RunFlags, bool) {
	if executionContext == nil {
		return RunFlags{}, false
	}
	value, valueAvailable := executionContext.Value(runFlagsContextKeyConstant).(RunFlags)
	if !valueAvailable {
		return RunFlags{}, false
	}
	return value, true
}
