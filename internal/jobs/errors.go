package jobs

import (
	"fmt"
)

const configurationErrorTemplateConstant = "option %s: %s"

// ConfigurationError reports malformed configuration input.
type ConfigurationError struct {
	Option  string
	Message string
}

// Error describes the offending option.
func (configurationError ConfigurationError) Error() string {
	if len(configurationError.Option) == 0 {
		return configurationError.Message
	}
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Option, configurationError.Message)
}

func newConfigurationError(option string, format string, arguments ...any) ConfigurationError {
	return ConfigurationError{Option: option, Message: fmt.Sprintf(format, arguments...)}
}
