package workflow

import (
	"fmt"
	"strings"
)

const (
	cycleErrorTemplate      = "dependency cycle detected: %s"
	unknownJobErrorTemplate = "unknown job %q"
	cyclePathSeparator      = " -> "
)

// CycleError reports a dependency cycle. Jobs lists the cycle path with the first job repeated at the end.
type CycleError struct {
	Jobs []string
}

func (cycleError CycleError) Error() string {
	return fmt.Sprintf(cycleErrorTemplate, strings.Join(cycleError.Jobs, cyclePathSeparator))
}

// UnknownJobError reports a selected job name absent from the configuration.
type UnknownJobError struct {
	Name string
}

func (unknownJobError UnknownJobError) Error() string {
	return fmt.Sprintf(unknownJobErrorTemplate, unknownJobError.Name)
}
