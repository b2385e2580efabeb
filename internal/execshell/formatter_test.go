package execshell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/execshell"
)

func TestCommandMessageFormatterShortensResolvedBinary(t *testing.T) {
	formatter := execshell.CommandMessageFormatter{}
	command := execshell.ShellCommand{
		Name:    "/workspace/venv/bin/flake8",
		Details: execshell.CommandDetails{Arguments: []string{"src"}},
	}

	require.Equal(t, "Running flake8 src", formatter.BuildStartedMessage(command))
	require.Equal(t, []string{"/workspace/venv/bin/flake8", "src"}, command.Argv())
}
