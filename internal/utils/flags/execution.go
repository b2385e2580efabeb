// Package flags binds the run flags shared by jobrun commands and reads them back.
package flags

import (
	"github.com/spf13/cobra"
)

// Shared run flag definitions.
const (
	WorkersFlagName        = "workers"
	WorkersFlagShorthand   = "j"
	WorkersFlagUsage       = "Maximum number of jobs running at once (0 means unbounded)"
	OutputFlagName         = "output"
	OutputFlagShorthand    = "o"
	OutputFlagUsage        = "Report format"
	DryRunFlagName         = "dry-run"
	DryRunFlagUsage        = "Print the execution plan without starting any process"
	HardCancelFlagName     = "hard-cancel"
	HardCancelFlagUsage    = "Kill running steps on interrupt instead of letting them finish"
	VariableFlagName       = "var"
	VariableFlagUsage      = "Override a template value (key=value, repeatable)"
	DefaultOutputFlagValue = "text"
)

// RunDefaults describes default flag values, usually taken from configuration.
type RunDefaults struct {
	Workers int
	Output  string
}

// BindRunFlags attaches the run flags to the command as persistent flags.
func BindRunFlags(command *cobra.Command, defaults RunDefaults, outputChoices []string) {
	if command == nil {
		return
	}

	outputDefault := defaults.Output
	if len(outputDefault) == 0 {
		outputDefault = DefaultOutputFlagValue
	}

	flagSet := command.PersistentFlags()
	if flagSet.Lookup(WorkersFlagName) == nil {
		flagSet.IntP(WorkersFlagName, WorkersFlagShorthand, defaults.Workers, WorkersFlagUsage)
	}
	if flagSet.Lookup(OutputFlagName) == nil {
		flagSet.StringP(OutputFlagName, OutputFlagShorthand, outputDefault, FormatChoiceUsage(outputDefault, outputChoices, OutputFlagUsage))
	}
	if flagSet.Lookup(DryRunFlagName) == nil {
		flagSet.Bool(DryRunFlagName, false, DryRunFlagUsage)
	}
	if flagSet.Lookup(HardCancelFlagName) == nil {
		flagSet.Bool(HardCancelFlagName, false, HardCancelFlagUsage)
	}
	if flagSet.Lookup(VariableFlagName) == nil {
		flagSet.StringArray(VariableFlagName, nil, VariableFlagUsage)
	}
}
