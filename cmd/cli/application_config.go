package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/tyemirov/jobrun/internal/jobs"
)

const (
	embeddedConfigurationTypeConstant    = "yaml"
	configurationFileMissingMessage      = "no jobs file found; pass --config or run \"jobrun init\""
	configurationParseErrorTemplate      = "invalid jobs file %s: %w"
	negativeWorkersErrorTemplateConstant = "workers must not be negative; %d given"
)

//go:embed defaults.yaml
var embeddedDefaultConfiguration []byte

//go:embed starter.yaml
var embeddedStarterConfiguration []byte

var errConfigurationFileMissing = errors.New(configurationFileMissingMessage)

// ApplicationConfiguration describes the jobs file plus the shared CLI settings.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration `mapstructure:"common"`
	Default  any                            `mapstructure:"default"`
	Values   map[string]any                 `mapstructure:"values"`
	Jobs     map[string]any                 `mapstructure:"jobs"`
	Contexts any                            `mapstructure:"contexts"`
}

// ApplicationCommonConfiguration stores logging and run defaults.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Workers   int    `mapstructure:"workers"`
	Output    string `mapstructure:"output"`
}

// EmbeddedDefaultConfiguration returns the built-in settings layered beneath any jobs file.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), embeddedDefaultConfiguration...), embeddedConfigurationTypeConstant
}

// EmbeddedStarterConfiguration returns the jobs file written by "jobrun init".
func EmbeddedStarterConfiguration() []byte {
	return append([]byte(nil), embeddedStarterConfiguration...)
}

// buildJobConfiguration parses the loaded jobs and applies --var overrides on top of the file's values.
func (application *Application) buildJobConfiguration(overrides map[string]string) (jobs.Configuration, error) {
	configFileUsed := application.configurationMetadata.ConfigFileUsed
	if len(configFileUsed) == 0 {
		return jobs.Configuration{}, errConfigurationFileMissing
	}

	configuration, parseError := jobs.ParseConfiguration(jobs.RawConfiguration{
		Default:  application.configuration.Default,
		Jobs:     application.configuration.Jobs,
		Values:   application.configuration.Values,
		Contexts: application.configuration.Contexts,
	}, application.projectRoot)
	if parseError != nil {
		return jobs.Configuration{}, fmt.Errorf(configurationParseErrorTemplate, configFileUsed, parseError)
	}

	if len(overrides) == 0 {
		return configuration, nil
	}
	overrideKeys := make([]string, 0, len(overrides))
	for key := range overrides {
		overrideKeys = append(overrideKeys, key)
	}
	sort.Strings(overrideKeys)

	values := configuration.Values()
	for _, key := range overrideKeys {
		values = values.With(key, overrides[key])
	}
	return configuration.WithValues(values), nil
}

func (application *Application) resolveWorkers(flagWorkers int, flagSet bool) (int, error) {
	workers := application.configuration.Common.Workers
	if flagSet {
		workers = flagWorkers
	}
	if workers < 0 {
		return 0, fmt.Errorf(negativeWorkersErrorTemplateConstant, workers)
	}
	return workers, nil
}
