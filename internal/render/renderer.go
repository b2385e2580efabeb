// Package render turns raw command templates into executable steps.
package render

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/tyemirov/jobrun/internal/jobs"
)

const (
	missingValueMessageTemplateConstant  = "command %q references undefined value %q"
	emptyTemplateMessageTemplateConstant = "command %q contains no tokens"
	tokenizeMessageTemplateConstant      = "command %q could not be tokenized: %v"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}\s]+)\}`)

// BinaryResolver locates executables on the search path.
type BinaryResolver interface {
	Resolve(name string) (string, bool)
}

// TemplateError reports a command template that could not be rendered.
type TemplateError struct {
	Template string
	Key      string
	Cause    error
}

// Error describes the rendering failure.
func (templateError *TemplateError) Error() string {
	switch {
	case len(templateError.Key) > 0:
		return fmt.Sprintf(missingValueMessageTemplateConstant, templateError.Template, templateError.Key)
	case templateError.Cause != nil:
		return fmt.Sprintf(tokenizeMessageTemplateConstant, templateError.Template, templateError.Cause)
	default:
		return fmt.Sprintf(emptyTemplateMessageTemplateConstant, templateError.Template)
	}
}

// Unwrap exposes the tokenizer failure, if any.
func (templateError *TemplateError) Unwrap() error {
	return templateError.Cause
}

// Renderer renders templates against configuration values.
type Renderer struct {
	resolver BinaryResolver
}

// NewRenderer constructs a renderer. A nil resolver leaves binaries unresolved.
func NewRenderer(resolver BinaryResolver) Renderer {
	return Renderer{resolver: resolver}
}

// Tokenize splits a command line into words, honouring single and double quotes.
func Tokenize(template string) ([]string, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false
	return parser.Parse(template)
}

// Render renders the template in the implicit unnamed context.
func (renderer Renderer) Render(template string, configuration jobs.Configuration) (jobs.Step, error) {
	return renderer.RenderIn(template, configuration, jobs.Context{})
}

// RenderIn tokenizes the template, substitutes {key} placeholders, and resolves the binary.
// A named context is visible to templates as {context}; its bin directories are searched
// before the resolver.
func (renderer Renderer) RenderIn(template string, configuration jobs.Configuration, runtimeContext jobs.Context) (jobs.Step, error) {
	tokens, tokenizeError := Tokenize(template)
	if tokenizeError != nil {
		return jobs.Step{}, &TemplateError{Template: template, Cause: tokenizeError}
	}
	if len(tokens) == 0 {
		return jobs.Step{}, &TemplateError{Template: template}
	}

	values := configuration.Values()
	if name := runtimeContext.Name(); len(name) > 0 {
		values = values.With(jobs.ContextValueKey, name)
	}
	command := make([]string, 0, len(tokens))
	for _, token := range tokens {
		substituted, missingKey := substitute(token, values)
		if len(missingKey) > 0 {
			return jobs.Step{}, &TemplateError{Template: template, Key: missingKey}
		}
		command = append(command, substituted)
	}

	command[0] = renderer.which(command[0], configuration.Root(), runtimeContext)

	return jobs.Step{
		Command:       command,
		Template:      template,
		Configuration: configuration,
		Context:       runtimeContext,
	}, nil
}

// which never searches for a binary containing a path separator; a relative one is taken
// from the project root.
func (renderer Renderer) which(binary string, root string, runtimeContext jobs.Context) string {
	if strings.ContainsRune(binary, filepath.Separator) || strings.ContainsRune(binary, '/') {
		if filepath.IsAbs(binary) || len(root) == 0 {
			return binary
		}
		return filepath.Join(root, binary)
	}
	for _, directory := range runtimeContext.BinDirectories(root) {
		if located, lookupError := exec.LookPath(filepath.Join(directory, binary)); lookupError == nil {
			return located
		}
	}
	if renderer.resolver == nil {
		return binary
	}
	resolved, found := renderer.resolver.Resolve(binary)
	if !found || len(strings.TrimSpace(resolved)) == 0 {
		return binary
	}
	return resolved
}

func substitute(token string, values jobs.Values) (string, string) {
	missingKey := ""
	substituted := placeholderPattern.ReplaceAllStringFunc(token, func(placeholder string) string {
		key := placeholder[1 : len(placeholder)-1]
		value, exists := values.Lookup(key)
		if !exists {
			if len(missingKey) == 0 {
				missingKey = key
			}
			return placeholder
		}
		return value
	})
	return substituted, missingKey
}

// IsTemplateError reports whether err originates from template rendering.
func IsTemplateError(err error) bool {
	var templateError *TemplateError
	return errors.As(err, &templateError)
}
