package render_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/render"
)

type stubResolver struct {
	paths map[string]string
	calls []string
}

func (resolver *stubResolver) Resolve(name string) (string, bool) {
	resolver.calls = append(resolver.calls, name)
	path, found := resolver.paths[name]
	return path, found
}

func configurationWithValues(entries ...jobs.ValueEntry) jobs.Configuration {
	return jobs.NewConfiguration(nil, nil, jobs.NewValues(entries...), "")
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		expected []string
	}{
		{name: "single quotes group words", template: "echo 'hello world'", expected: []string{"echo", "hello world"}},
		{name: "double quotes group words", template: `grep "a b" file.txt`, expected: []string{"grep", "a b", "file.txt"}},
		{name: "repeated whitespace collapses", template: "  ls   -la  ", expected: []string{"ls", "-la"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			tokens, tokenizeError := render.Tokenize(testCase.template)
			require.NoError(t, tokenizeError)
			require.Equal(t, testCase.expected, tokens)
		})
	}
}

func TestRenderResolvesBinaryAndSubstitutesValues(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"frobfrob": "/opt/bin/frobfrob"}}
	renderer := render.NewRenderer(resolver)
	configuration := configurationWithValues(jobs.ValueEntry{Key: "module", Value: "alpha"})

	step, renderError := renderer.Render("frobfrob check {module}.tests", configuration)
	require.NoError(t, renderError)
	require.Equal(t, []string{"/opt/bin/frobfrob", "check", "alpha.tests"}, step.Command)
	require.Equal(t, "frobfrob check {module}.tests", step.Template)
	require.Equal(t, []string{"frobfrob"}, resolver.calls)
}

func TestRenderResolvesRelativeBinaryAgainstProjectRoot(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"./scripts/check.sh": "/elsewhere/scripts/check.sh"}}
	renderer := render.NewRenderer(resolver)
	configuration := jobs.NewConfiguration(nil, nil, jobs.NewValues(), "/proj")

	step, renderError := renderer.Render("./scripts/check.sh --fast", configuration)
	require.NoError(t, renderError)
	require.Equal(t, []string{"/proj/scripts/check.sh", "--fast"}, step.Command)
	require.Empty(t, resolver.calls)

	absolute, absoluteError := renderer.Render("/usr/local/bin/tool", configuration)
	require.NoError(t, absoluteError)
	require.Equal(t, "/usr/local/bin/tool", absolute.Binary())
}

func TestRenderInSearchesContextBinDirectoriesFirst(t *testing.T) {
	root := t.TempDir()
	binDirectory := filepath.Join(root, "venv", "bin")
	require.NoError(t, os.MkdirAll(binDirectory, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDirectory, "frobfrob"), []byte("#!/bin/sh\n"), 0o755))

	resolver := &stubResolver{paths: map[string]string{"frobfrob": "/opt/bin/frobfrob", "other": "/opt/bin/other"}}
	renderer := render.NewRenderer(resolver)
	configuration := jobs.NewConfiguration(nil, nil, jobs.NewValues(), root)
	runtimeContext := jobs.NewContext("py312", []string{"venv/bin"}, nil)

	step, renderError := renderer.RenderIn("frobfrob --target {context}", configuration, runtimeContext)
	require.NoError(t, renderError)
	require.Equal(t, []string{filepath.Join(binDirectory, "frobfrob"), "--target", "py312"}, step.Command)
	require.Equal(t, "py312", step.Context.Name())
	require.Empty(t, resolver.calls)

	fallback, fallbackError := renderer.RenderIn("other", configuration, runtimeContext)
	require.NoError(t, fallbackError)
	require.Equal(t, "/opt/bin/other", fallback.Binary())
	require.Equal(t, []string{"other"}, resolver.calls)
}

func TestRenderWithoutContextLeavesContextPlaceholderUndefined(t *testing.T) {
	_, renderError := render.NewRenderer(nil).Render("echo {context}", configurationWithValues())
	var templateError *render.TemplateError
	require.ErrorAs(t, renderError, &templateError)
	require.Equal(t, jobs.ContextValueKey, templateError.Key)
}

func TestRenderKeepsUnresolvedBinary(t *testing.T) {
	renderer := render.NewRenderer(&stubResolver{})

	step, renderError := renderer.Render("frobfrob --version", configurationWithValues())
	require.NoError(t, renderError)
	require.Equal(t, "frobfrob", step.Binary())
	require.Equal(t, []string{"--version"}, step.Arguments())
}

func TestRenderSubstitutedValuesStaySingleTokens(t *testing.T) {
	renderer := render.NewRenderer(nil)
	configuration := configurationWithValues(jobs.ValueEntry{Key: "message", Value: "two words"})

	step, renderError := renderer.Render("echo {message}", configuration)
	require.NoError(t, renderError)
	require.Equal(t, []string{"echo", "two words"}, step.Command)
}

func TestRenderFailures(t *testing.T) {
	testCases := []struct {
		name            string
		template        string
		expectedKey     string
		expectedMessage string
	}{
		{
			name:            "missing value",
			template:        "flake8 {module}",
			expectedKey:     "module",
			expectedMessage: `command "flake8 {module}" references undefined value "module"`,
		},
		{
			name:            "empty template",
			template:        "   ",
			expectedMessage: `command "   " contains no tokens`,
		},
		{
			name:     "unterminated quote",
			template: "echo 'oops",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, renderError := render.NewRenderer(nil).Render(testCase.template, configurationWithValues())
			require.Error(t, renderError)
			require.True(t, render.IsTemplateError(renderError))

			var templateError *render.TemplateError
			require.ErrorAs(t, renderError, &templateError)
			require.Equal(t, testCase.expectedKey, templateError.Key)
			if len(testCase.expectedMessage) > 0 {
				require.EqualError(t, renderError, testCase.expectedMessage)
			}
		})
	}
}
