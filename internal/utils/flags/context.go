package flags

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tyemirov/jobrun/internal/utils"
)

// ErrFlagNotDefined indicates that the requested flag is not present on the command.
var ErrFlagNotDefined = errors.New("flag not defined")

// BoolFlag returns the flag value and whether it was set explicitly.
func BoolFlag(command *cobra.Command, name string) (bool, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return false, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetBool(name)
	if err != nil {
		return false, false, err
	}
	return value, flag.Changed, nil
}

func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return "", false, ErrFlagNotDefined
	}
	value, err := flagSet.GetString(name)
	if err != nil {
		return "", false, err
	}
	return value, flag.Changed, nil
}

func IntFlag(command *cobra.Command, name string) (int, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return 0, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetInt(name)
	if err != nil {
		return 0, false, err
	}
	return value, flag.Changed, nil
}

func StringArrayFlag(command *cobra.Command, name string) ([]string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return nil, false, ErrFlagNotDefined
	}
	values, err := flagSet.GetStringArray(name)
	if err != nil {
		return nil, false, err
	}
	return values, flag.Changed, nil
}

func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	if command == nil {
		return nil, nil
	}

	candidateSets := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if root := command.Root(); root != nil {
		candidateSets = append(candidateSets, root.PersistentFlags())
	}

	for _, set := range candidateSets {
		if set == nil {
			continue
		}
		if flag := set.Lookup(name); flag != nil {
			return set, flag
		}
	}

	return nil, nil
}

// CollectRunFlags inspects the command's flags to produce run flag values.
func CollectRunFlags(command *cobra.Command) (utils.RunFlags, error) {
	runFlags := utils.RunFlags{}
	if command == nil {
		return runFlags, nil
	}

	if workers, workersChanged, workersError := IntFlag(command, WorkersFlagName); workersError == nil {
		runFlags.Workers = workers
		runFlags.WorkersSet = workersChanged
	}
	if output, outputChanged, outputError := StringFlag(command, OutputFlagName); outputError == nil {
		runFlags.Output = output
		runFlags.OutputSet = outputChanged
	}
	if dryRun, _, dryRunError := BoolFlag(command, DryRunFlagName); dryRunError == nil {
		runFlags.DryRun = dryRun
	}
	if hardCancel, _, hardCancelError := BoolFlag(command, HardCancelFlagName); hardCancelError == nil {
		runFlags.HardCancel = hardCancel
	}
	if assignments, _, assignmentsError := StringArrayFlag(command, VariableFlagName); assignmentsError == nil {
		variables, parseError := ParseVariableAssignments(assignments)
		if parseError != nil {
			return utils.RunFlags{}, parseError
		}
		runFlags.Variables = variables
	}

	return runFlags, nil
}

// ResolveRunFlags returns run flags stored on the command context, falling back to flag values.
func ResolveRunFlags(command *cobra.Command) (utils.RunFlags, error) {
	contextAccessor := utils.NewCommandContextAccessor()
	if command != nil {
		if runFlags, available := contextAccessor.RunFlags(command.Context()); available {
			return runFlags, nil
		}
	}
	return CollectRunFlags(command)
}
