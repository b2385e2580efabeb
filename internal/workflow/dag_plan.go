package workflow

import (
	"fmt"
	"sort"

	"github.com/tyemirov/jobrun/internal/jobs"
)

const (
	undefinedRequirementTemplate = "undefined job %q"
	requiresOptionTemplate       = "jobs.%s.requires"
)

// ExecutionPlan is the dependency-ordered view of the jobs selected for one run.
type ExecutionPlan struct {
	// Selected holds the normalized names the caller asked for, or the configured default.
	Selected []string
	// Stages groups the transitive closure into topological layers, each sorted by name.
	Stages [][]string

	requires   map[string][]string
	dependents map[string][]string
}

// Jobs returns every planned job in stage order.
func (plan ExecutionPlan) Jobs() []string {
	names := make([]string, 0, len(plan.requires))
	for _, stage := range plan.Stages {
		names = append(names, stage...)
	}
	return names
}

// Requires returns the in-plan requirements of the named job.
func (plan ExecutionPlan) Requires(name string) []string {
	return append([]string(nil), plan.requires[name]...)
}

// Dependents returns jobs that directly require the named job, sorted by name.
func (plan ExecutionPlan) Dependents(name string) []string {
	return append([]string(nil), plan.dependents[name]...)
}

// BuildExecutionPlan computes the transitive closure of the selection, rejects cycles,
// and layers the remaining graph.
func BuildExecutionPlan(configuration jobs.Configuration, selected []string) (ExecutionPlan, error) {
	selection := normalizeSelection(selected)
	if len(selection) == 0 {
		selection = normalizeSelection(configuration.Default())
	}

	requires, closureError := collectClosure(configuration, selection)
	if closureError != nil {
		return ExecutionPlan{}, closureError
	}
	if cycle := findCycle(requires); len(cycle) > 0 {
		return ExecutionPlan{}, CycleError{Jobs: cycle}
	}

	dependents := make(map[string][]string, len(requires))
	for name, requirements := range requires {
		for _, requirement := range requirements {
			dependents[requirement] = append(dependents[requirement], name)
		}
	}
	for name := range dependents {
		sort.Strings(dependents[name])
	}

	return ExecutionPlan{
		Selected:   selection,
		Stages:     layerJobs(requires, dependents),
		requires:   requires,
		dependents: dependents,
	}, nil
}

func normalizeSelection(names []string) []string {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		candidate := jobs.NormalizeName(name)
		if len(candidate) == 0 {
			continue
		}
		if _, duplicate := seen[candidate]; duplicate {
			continue
		}
		seen[candidate] = struct{}{}
		normalized = append(normalized, candidate)
	}
	return normalized
}

func collectClosure(configuration jobs.Configuration, selection []string) (map[string][]string, error) {
	requires := make(map[string][]string)
	queue := make([]string, 0, len(selection))
	for _, name := range selection {
		if _, exists := configuration.Job(name); !exists {
			return nil, UnknownJobError{Name: name}
		}
		queue = append(queue, name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, visited := requires[name]; visited {
			continue
		}
		job, _ := configuration.Job(name)
		requirements := job.Requires()
		for _, requirement := range requirements {
			if _, exists := configuration.Job(requirement); !exists {
				return nil, jobs.ConfigurationError{
					Option:  fmt.Sprintf(requiresOptionTemplate, name),
					Message: fmt.Sprintf(undefinedRequirementTemplate, requirement),
				}
			}
			queue = append(queue, requirement)
		}
		requires[name] = requirements
	}
	return requires, nil
}

type visitMark int

const (
	unvisited visitMark = iota
	visiting
	visited
)

// findCycle walks the graph depth first in name order and returns the first cycle path found.
func findCycle(requires map[string][]string) []string {
	names := sortedKeys(requires)
	marks := make(map[string]visitMark, len(names))
	stack := make([]string, 0, len(names))

	var visit func(name string) []string
	visit = func(name string) []string {
		marks[name] = visiting
		stack = append(stack, name)
		for _, requirement := range requires[name] {
			switch marks[requirement] {
			case visiting:
				for index := range stack {
					if stack[index] == requirement {
						cycle := append([]string(nil), stack[index:]...)
						return append(cycle, requirement)
					}
				}
			case unvisited:
				if cycle := visit(requirement); len(cycle) > 0 {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = visited
		return nil
	}

	for _, name := range names {
		if marks[name] != unvisited {
			continue
		}
		if cycle := visit(name); len(cycle) > 0 {
			return cycle
		}
	}
	return nil
}

// layerJobs assigns each job to the first stage after all of its requirements.
func layerJobs(requires map[string][]string, dependents map[string][]string) [][]string {
	inDegree := make(map[string]int, len(requires))
	ready := make([]string, 0)
	for _, name := range sortedKeys(requires) {
		inDegree[name] = len(requires[name])
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	stages := make([][]string, 0)
	for len(ready) > 0 {
		stage := ready
		stages = append(stages, stage)

		next := make([]string, 0)
		for _, name := range stage {
			for _, dependent := range dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		ready = next
	}
	return stages
}

func sortedKeys(source map[string][]string) []string {
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
