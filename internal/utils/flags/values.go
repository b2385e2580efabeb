package flags

import (
	"fmt"
	"strings"
)

const (
	choiceUsageTemplate         = "%s (%s; default %s)"
	assignmentSeparator         = "="
	malformedAssignmentTemplate = "invalid --%s value %q: expected key=value"
	emptyAssignmentKeyTemplate  = "invalid --%s value %q: key must not be empty"
	choiceSeparator             = "|"
)

// FormatChoiceUsage appends the accepted choices and default to a flag usage string.
func FormatChoiceUsage(defaultValue string, choices []string, usage string) string {
	if len(choices) == 0 {
		return usage
	}
	return fmt.Sprintf(choiceUsageTemplate, usage, strings.Join(choices, choiceSeparator), defaultValue)
}

// ParseVariableAssignments converts key=value pairs into a map. Later assignments win.
// The value may itself contain '='.
func ParseVariableAssignments(assignments []string) (map[string]string, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	variables := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, assignmentSeparator)
		if !found {
			return nil, fmt.Errorf(malformedAssignmentTemplate, VariableFlagName, assignment)
		}
		key = strings.TrimSpace(key)
		if len(key) == 0 {
			return nil, fmt.Errorf(emptyAssignmentKeyTemplate, VariableFlagName, assignment)
		}
		variables[key] = value
	}
	return variables, nil
}
