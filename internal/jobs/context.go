package jobs

import (
	"os"
	"path/filepath"
	"strings"
)

// ContextValueKey is the template value holding the active context name.
const ContextValueKey = "context"

const pathEnvironmentVariable = "PATH"

// Context is one environment every job runs in. A configuration without contexts runs each
// job once in the implicit unnamed context, which inherits the process environment unchanged.
type Context struct {
	name      string
	path      []string
	variables map[string]string
}

// NewContext constructs a context. Path entries are searched for binaries before PATH and
// are prepended to PATH for every step; relative entries are taken from the project root.
func NewContext(name string, path []string, variables map[string]string) Context {
	copiedPath := make([]string, 0, len(path))
	for _, entry := range path {
		if trimmed := strings.TrimSpace(entry); len(trimmed) > 0 {
			copiedPath = append(copiedPath, trimmed)
		}
	}
	copiedVariables := make(map[string]string, len(variables))
	for key, value := range variables {
		copiedVariables[key] = value
	}
	return Context{name: NormalizeName(name), path: copiedPath, variables: copiedVariables}
}

// Name returns the normalized context name; the implicit context has none.
func (context Context) Name() string {
	return context.name
}

// BinDirectories returns the path entries resolved against root.
func (context Context) BinDirectories(root string) []string {
	directories := make([]string, 0, len(context.path))
	for _, entry := range context.path {
		if !filepath.IsAbs(entry) && len(root) > 0 {
			entry = filepath.Join(root, entry)
		}
		directories = append(directories, entry)
	}
	return directories
}

// CommandEnvironment returns the variables a step in this context adds to the inherited
// environment. PATH gains the bin directories in front of inheritedPath; a PATH variable
// declared on the context replaces inheritedPath.
func (context Context) CommandEnvironment(root string, inheritedPath string) map[string]string {
	if len(context.path) == 0 && len(context.variables) == 0 {
		return nil
	}
	environment := make(map[string]string, len(context.variables)+1)
	for key, value := range context.variables {
		environment[key] = value
	}
	if len(context.path) == 0 {
		return environment
	}

	basePath := inheritedPath
	if declared, exists := context.variables[pathEnvironmentVariable]; exists {
		basePath = declared
	}
	searchPath := strings.Join(context.BinDirectories(root), string(os.PathListSeparator))
	if len(basePath) > 0 {
		searchPath += string(os.PathListSeparator) + basePath
	}
	environment[pathEnvironmentVariable] = searchPath
	return environment
}
