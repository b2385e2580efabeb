package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/jobrun/internal/jobs"
)

func releaseConfiguration() jobs.Configuration {
	return buildConfiguration(
		[]string{"deploy"},
		jobs.NewJob("build", []string{"make build"}, nil),
		jobs.NewJob("lint", []string{"make lint"}, nil),
		jobs.NewJob("test", []string{"make test"}, []string{"build"}),
		jobs.NewJob("package", []string{"make package"}, []string{"build", "lint"}),
		jobs.NewJob("deploy", []string{"make deploy"}, []string{"test", "package"}),
		jobs.NewJob("docs", []string{"make docs"}, nil),
	)
}

func TestBuildExecutionPlanProducesTopologicalLayers(t *testing.T) {
	plan, planError := BuildExecutionPlan(releaseConfiguration(), []string{"deploy"})
	require.NoError(t, planError)

	require.Equal(t, []string{"deploy"}, plan.Selected)
	require.Equal(t, [][]string{{"build", "lint"}, {"package", "test"}, {"deploy"}}, plan.Stages)
	require.Equal(t, []string{"build", "lint", "package", "test", "deploy"}, plan.Jobs())
	require.Equal(t, []string{"package", "test"}, plan.Dependents("build"))
	require.Equal(t, []string{"build", "lint"}, plan.Requires("package"))
}

func TestBuildExecutionPlanRestrictsToClosure(t *testing.T) {
	plan, planError := BuildExecutionPlan(releaseConfiguration(), []string{"TEST", "docs", "test"})
	require.NoError(t, planError)

	require.Equal(t, []string{"test", "docs"}, plan.Selected)
	require.Equal(t, [][]string{{"build", "docs"}, {"test"}}, plan.Stages)
}

func TestBuildExecutionPlanUsesDefaultSelection(t *testing.T) {
	plan, planError := BuildExecutionPlan(releaseConfiguration(), nil)
	require.NoError(t, planError)
	require.Equal(t, []string{"deploy"}, plan.Selected)
	require.Len(t, plan.Jobs(), 5)
}

func TestBuildExecutionPlanEmptySelection(t *testing.T) {
	plan, planError := BuildExecutionPlan(buildConfiguration(nil, jobs.NewJob("build", nil, nil)), nil)
	require.NoError(t, planError)
	require.Empty(t, plan.Stages)
	require.Empty(t, plan.Jobs())
}

func TestBuildExecutionPlanErrors(t *testing.T) {
	testCases := []struct {
		name          string
		configuration jobs.Configuration
		selected      []string
		expected      error
	}{
		{
			name: "two job cycle",
			configuration: buildConfiguration(nil,
				jobs.NewJob("a", nil, []string{"b"}),
				jobs.NewJob("b", nil, []string{"a"}),
			),
			selected: []string{"a"},
			expected: CycleError{Jobs: []string{"a", "b", "a"}},
		},
		{
			name: "self dependency",
			configuration: buildConfiguration(nil,
				jobs.NewJob("loop", nil, []string{"loop"}),
			),
			selected: []string{"loop"},
			expected: CycleError{Jobs: []string{"loop", "loop"}},
		},
		{
			name: "cycle below an acyclic root",
			configuration: buildConfiguration(nil,
				jobs.NewJob("x", nil, []string{"a"}),
				jobs.NewJob("a", nil, []string{"b"}),
				jobs.NewJob("b", nil, []string{"c"}),
				jobs.NewJob("c", nil, []string{"a"}),
			),
			selected: []string{"x"},
			expected: CycleError{Jobs: []string{"a", "b", "c", "a"}},
		},
		{
			name:          "unknown selection",
			configuration: releaseConfiguration(),
			selected:      []string{"publish"},
			expected:      UnknownJobError{Name: "publish"},
		},
		{
			name: "undefined requirement",
			configuration: buildConfiguration(nil,
				jobs.NewJob("a", nil, []string{"ghost"}),
			),
			selected: []string{"a"},
			expected: jobs.ConfigurationError{Option: "jobs.a.requires", Message: `undefined job "ghost"`},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, planError := BuildExecutionPlan(testCase.configuration, testCase.selected)
			require.Error(t, planError)
			require.Equal(t, testCase.expected, planError)
		})
	}
}

func TestCycleErrorMessageNamesPath(t *testing.T) {
	require.EqualError(t, CycleError{Jobs: []string{"a", "b", "a"}}, "dependency cycle detected: a -> b -> a")
	require.EqualError(t, UnknownJobError{Name: "publish"}, `unknown job "publish"`)
}
