package jobs

import (
	"fmt"
	"sort"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
)

const (
	listishMessageConstant        = "must be a string or list of strings; %v given"
	jobShapeMessageConstant       = "must be string, list of strings, or mapping; %v given"
	jobDecodeMessageConstant      = "unable to decode job definition: %v"
	duplicateJobMessageConstant   = "job %q defined more than once after case normalization"
	emptyJobNameMessageConstant   = "job name must not be empty"
	jobOptionTemplateConstant     = "jobs.%s"
	jobRunOptionTemplateConstant  = "jobs.%s.run"
	jobRequiresOptionTemplateName = "jobs.%s.requires"
	contextsOptionConstant        = "contexts"
	contextOptionTemplateConstant = "contexts[%d]"
	contextEnvOptionTemplate      = "contexts.%s.env"
	contextPathOptionTemplate     = "contexts.%s.path"
	contextShapeMessageConstant   = "must be a list of mappings; %v given"
	contextNameMessageConstant    = "context name must not be empty"
	duplicateContextMessage       = "context %q defined more than once after case normalization"
	contextDecodeMessageConstant  = "unable to decode context definition: %v"
	contextEnvMessageConstant     = "environment entry %q must be NAME=value"
)

// RawConfiguration is the undecoded configuration tree produced by the configuration loader.
type RawConfiguration struct {
	Default  any            `mapstructure:"default"`
	Jobs     map[string]any `mapstructure:"jobs"`
	Values   map[string]any `mapstructure:"values"`
	Contexts any            `mapstructure:"contexts"`
}

type contextDefinition struct {
	Name string `mapstructure:"name"`
	Path any    `mapstructure:"path"`
	Env  any    `mapstructure:"env"`
}

type jobDefinition struct {
	Run      any `mapstructure:"run"`
	Requires any `mapstructure:"requires"`
}

// ParseConfiguration converts a raw configuration tree into a validated Configuration.
func ParseConfiguration(raw RawConfiguration, root string) (Configuration, error) {
	defaultJobs, defaultError := ensureListish(raw.Default, defaultOptionConstant)
	if defaultError != nil {
		return Configuration{}, defaultError
	}

	jobList, jobsError := parseJobs(raw.Jobs)
	if jobsError != nil {
		return Configuration{}, jobsError
	}

	renderedValues := make(map[string]string, len(raw.Values))
	for key, value := range raw.Values {
		renderedValues[key] = fmt.Sprint(value)
	}

	contexts, contextsError := parseContexts(raw.Contexts)
	if contextsError != nil {
		return Configuration{}, contextsError
	}

	configuration := NewConfiguration(defaultJobs, jobList, ValuesFromMap(renderedValues), root).WithContexts(contexts)
	if validationError := Validate(configuration); validationError != nil {
		return Configuration{}, validationError
	}
	return configuration, nil
}

func parseJobs(rawJobs map[string]any) ([]Job, error) {
	rawNames := make([]string, 0, len(rawJobs))
	for rawName := range rawJobs {
		rawNames = append(rawNames, rawName)
	}
	sort.Strings(rawNames)

	jobList := make([]Job, 0, len(rawNames))
	seenNames := make(map[string]struct{}, len(rawNames))
	for _, rawName := range rawNames {
		name := NormalizeName(rawName)
		if len(name) == 0 {
			return nil, ConfigurationError{Option: jobsOptionConstant, Message: emptyJobNameMessageConstant}
		}
		if _, seen := seenNames[name]; seen {
			return nil, newConfigurationError(jobsOptionConstant, duplicateJobMessageConstant, name)
		}
		seenNames[name] = struct{}{}

		job, jobError := parseJob(name, rawJobs[rawName])
		if jobError != nil {
			return nil, jobError
		}
		jobList = append(jobList, job)
	}
	return jobList, nil
}

func parseJob(name string, data any) (Job, error) {
	switch typed := data.(type) {
	case string:
		return NewJob(name, []string{typed}, nil), nil
	case []any, []string:
		run, runError := ensureListish(typed, fmt.Sprintf(jobOptionTemplateConstant, name))
		if runError != nil {
			return Job{}, runError
		}
		return NewJob(name, run, nil), nil
	case map[string]any:
		var definition jobDefinition
		decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      &definition,
		})
		if decoderError != nil {
			return Job{}, decoderError
		}
		if decodeError := decoder.Decode(typed); decodeError != nil {
			return Job{}, newConfigurationError(fmt.Sprintf(jobOptionTemplateConstant, name), jobDecodeMessageConstant, decodeError)
		}

		run, runError := ensureListish(definition.Run, fmt.Sprintf(jobRunOptionTemplateConstant, name))
		if runError != nil {
			return Job{}, runError
		}
		requires, requiresError := ensureListish(definition.Requires, fmt.Sprintf(jobRequiresOptionTemplateName, name))
		if requiresError != nil {
			return Job{}, requiresError
		}
		return NewJob(name, run, requires), nil
	default:
		return Job{}, newConfigurationError(fmt.Sprintf(jobOptionTemplateConstant, name), jobShapeMessageConstant, data)
	}
}

func ensureListish(value any, option string) ([]string, error) {
	switch typed := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{typed}, nil
	case []string:
		copied := make([]string, len(typed))
		copy(copied, typed)
		return copied, nil
	case []any:
		result := make([]string, 0, len(typed))
		for _, element := range typed {
			text, isString := element.(string)
			if !isString {
				return nil, newConfigurationError(option, listishMessageConstant, value)
			}
			result = append(result, text)
		}
		return result, nil
	default:
		return nil, newConfigurationError(option, listishMessageConstant, value)
	}
}

func parseContexts(rawContexts any) ([]Context, error) {
	if rawContexts == nil {
		return nil, nil
	}
	entries, isList := rawContexts.([]any)
	if !isList {
		return nil, newConfigurationError(contextsOptionConstant, contextShapeMessageConstant, rawContexts)
	}

	contexts := make([]Context, 0, len(entries))
	seenNames := make(map[string]struct{}, len(entries))
	for index, entry := range entries {
		option := fmt.Sprintf(contextOptionTemplateConstant, index)
		var definition contextDefinition
		decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &definition,
		})
		if decoderError != nil {
			return nil, decoderError
		}
		if decodeError := decoder.Decode(entry); decodeError != nil {
			return nil, newConfigurationError(option, contextDecodeMessageConstant, decodeError)
		}

		name := NormalizeName(definition.Name)
		if len(name) == 0 {
			return nil, ConfigurationError{Option: option, Message: contextNameMessageConstant}
		}
		if _, seen := seenNames[name]; seen {
			return nil, newConfigurationError(contextsOptionConstant, duplicateContextMessage, name)
		}
		seenNames[name] = struct{}{}

		path, pathError := ensureListish(definition.Path, fmt.Sprintf(contextPathOptionTemplate, name))
		if pathError != nil {
			return nil, pathError
		}
		variables, variablesError := parseContextEnvironment(definition.Env, fmt.Sprintf(contextEnvOptionTemplate, name))
		if variablesError != nil {
			return nil, variablesError
		}
		contexts = append(contexts, NewContext(name, path, variables))
	}
	return contexts, nil
}

// parseContextEnvironment accepts NAME=value strings, which keep the case of NAME, or a mapping.
func parseContextEnvironment(rawEnvironment any, option string) (map[string]string, error) {
	if mapping, isMapping := rawEnvironment.(map[string]any); isMapping {
		variables := make(map[string]string, len(mapping))
		for key, value := range mapping {
			variables[key] = fmt.Sprint(value)
		}
		return variables, nil
	}

	assignments, listError := ensureListish(rawEnvironment, option)
	if listError != nil {
		return nil, listError
	}
	variables := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, "=")
		key = strings.TrimSpace(key)
		if !found || len(key) == 0 {
			return nil, newConfigurationError(option, contextEnvMessageConstant, assignment)
		}
		variables[key] = value
	}
	return variables, nil
}
