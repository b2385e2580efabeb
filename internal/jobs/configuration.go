package jobs

import (
	"sort"
)

// Values stores template variables in insertion order.
type Values struct {
	keys    []string
	entries map[string]string
}

// ValueEntry is a single template variable assignment.
type ValueEntry struct {
	Key   string
	Value string
}

// NewValues builds an ordered value mapping. Later duplicates replace earlier values in place.
func NewValues(entries ...ValueEntry) Values {
	values := Values{entries: make(map[string]string, len(entries))}
	for _, entry := range entries {
		values = values.With(entry.Key, entry.Value)
	}
	return values
}

// ValuesFromMap builds a value mapping ordered lexicographically by key.
func ValuesFromMap(source map[string]string) Values {
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]ValueEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, ValueEntry{Key: key, Value: source[key]})
	}
	return NewValues(entries...)
}

// Lookup returns the value stored for key.
func (values Values) Lookup(key string) (string, bool) {
	value, exists := values.entries[key]
	return value, exists
}

// Keys returns the keys in order.
func (values Values) Keys() []string {
	copied := make([]string, len(values.keys))
	copy(copied, values.keys)
	return copied
}

// Len reports the number of stored values.
func (values Values) Len() int {
	return len(values.keys)
}

// With returns a copy of values with key set to value.
func (values Values) With(key string, value string) Values {
	cloned := Values{
		keys:    make([]string, len(values.keys), len(values.keys)+1),
		entries: make(map[string]string, len(values.entries)+1),
	}
	copy(cloned.keys, values.keys)
	for existingKey, existingValue := range values.entries {
		cloned.entries[existingKey] = existingValue
	}
	if _, exists := cloned.entries[key]; !exists {
		cloned.keys = append(cloned.keys, key)
	}
	cloned.entries[key] = value
	return cloned
}

// Configuration is the validated set of jobs, defaults, and template values for one run.
type Configuration struct {
	defaultJobs []string
	jobs        map[string]Job
	values      Values
	root        string
	contexts    []Context
}

// NewConfiguration assembles a configuration keyed by normalized job name.
func NewConfiguration(defaultJobs []string, jobList []Job, values Values, root string) Configuration {
	normalizedDefaults := make([]string, 0, len(defaultJobs))
	for _, name := range defaultJobs {
		normalizedDefaults = append(normalizedDefaults, NormalizeName(name))
	}

	jobMap := make(map[string]Job, len(jobList))
	for _, job := range jobList {
		jobMap[job.Name()] = job
	}

	return Configuration{
		defaultJobs: normalizedDefaults,
		jobs:        jobMap,
		values:      values,
		root:        root,
	}
}

// Default returns the job names run when none are selected.
func (configuration Configuration) Default() []string {
	copied := make([]string, len(configuration.defaultJobs))
	copy(copied, configuration.defaultJobs)
	return copied
}

// Job looks up a job by name.
func (configuration Configuration) Job(name string) (Job, bool) {
	job, exists := configuration.jobs[NormalizeName(name)]
	return job, exists
}

// JobNames returns all job names sorted lexicographically.
func (configuration Configuration) JobNames() []string {
	names := make([]string, 0, len(configuration.jobs))
	for name := range configuration.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns the template variables.
func (configuration Configuration) Values() Values {
	return configuration.values
}

// Root returns the project root used as the working directory for steps.
func (configuration Configuration) Root() string {
	return configuration.root
}

// WithValues returns a copy of the configuration using the provided values.
func (configuration Configuration) WithValues(values Values) Configuration {
	configuration.values = values
	return configuration
}

// WithContexts returns a copy of the configuration that runs every job once per context.
func (configuration Configuration) WithContexts(contexts []Context) Configuration {
	configuration.contexts = append([]Context(nil), contexts...)
	return configuration
}

// Contexts returns the configured contexts in declared order, or the implicit unnamed context.
func (configuration Configuration) Contexts() []Context {
	if len(configuration.contexts) == 0 {
		return []Context{{}}
	}
	return append([]Context(nil), configuration.contexts...)
}
