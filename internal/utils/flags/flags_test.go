package flags

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/utils"
)

func newRunCommand(t *testing.T, arguments ...string) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "jobrun", RunE: func(*cobra.Command, []string) error { return nil }}
	BindRunFlags(root, RunDefaults{Workers: 2}, []string{"text", "yaml", "json"})
	root.SetArgs(arguments)
	require.NoError(t, root.Execute())
	return root
}

func TestCollectRunFlags(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  utils.RunFlags
	}{
		{
			name:     "defaults",
			expected: utils.RunFlags{Workers: 2, Output: "text"},
		},
		{
			name:      "explicit values",
			arguments: []string{"-j", "4", "--output", "json", "--dry-run", "--hard-cancel", "--var", "pkg=./...", "--var", "flags=-v=1"},
			expected: utils.RunFlags{
				Workers:    4,
				WorkersSet: true,
				Output:     "json",
				OutputSet:  true,
				DryRun:     true,
				HardCancel: true,
				Variables:  map[string]string{"pkg": "./...", "flags": "-v=1"},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := newRunCommand(t, testCase.arguments...)
			runFlags, collectError := CollectRunFlags(command)
			require.NoError(t, collectError)
			require.Equal(t, testCase.expected, runFlags)
		})
	}
}

func TestCollectRunFlagsRejectsMalformedAssignment(t *testing.T) {
	command := newRunCommand(t, "--var", "novalue")
	_, collectError := CollectRunFlags(command)
	require.EqualError(t, collectError, `invalid --var value "novalue": expected key=value`)
}

func TestResolveRunFlagsPrefersContext(t *testing.T) {
	command := newRunCommand(t, "-j", "8")
	stored := utils.RunFlags{Workers: 1, WorkersSet: true, Output: "yaml"}
	command.SetContext(utils.NewCommandContextAccessor().WithRunFlags(context.Background(), stored))

	resolved, resolveError := ResolveRunFlags(command)
	require.NoError(t, resolveError)
	require.Equal(t, stored, resolved)
}

func TestFlagAccessorsReportMissingFlags(t *testing.T) {
	command := &cobra.Command{Use: "bare"}
	_, _, boolError := BoolFlag(command, DryRunFlagName)
	require.ErrorIs(t, boolError, ErrFlagNotDefined)
	_, _, intError := IntFlag(command, WorkersFlagName)
	require.ErrorIs(t, intError, ErrFlagNotDefined)

	runFlags, collectError := CollectRunFlags(command)
	require.NoError(t, collectError)
	require.Equal(t, utils.RunFlags{}, runFlags)
}

func TestParseVariableAssignments(t *testing.T) {
	variables, parseError := ParseVariableAssignments([]string{"a=1", "a=2", "empty="})
	require.NoError(t, parseError)
	require.Equal(t, map[string]string{"a": "2", "empty": ""}, variables)

	_, emptyKeyError := ParseVariableAssignments([]string{" =x"})
	require.EqualError(t, emptyKeyError, `invalid --var value " =x": key must not be empty`)

	none, noneError := ParseVariableAssignments(nil)
	require.NoError(t, noneError)
	require.Nil(t, none)
}

func TestFormatChoiceUsage(t *testing.T) {
	require.Equal(t, "Report format (text|yaml|json; default text)", FormatChoiceUsage("text", []string{"text", "yaml", "json"}, "Report format"))
	require.Equal(t, "Report format", FormatChoiceUsage("text", nil, "Report format"))
}
