package workflow

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tyemirov/jobrun/internal/execshell"
	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/render"
	"github.com/tyemirov/jobrun/internal/reporting"
)

const (
	runPlanLogMessage    = "run_plan"
	runSummaryLogMessage = "run_summary"
	runIDFieldName       = "run_id"
	stagesFieldName      = "stages"
	summaryFieldName     = "summary"
	successFieldName     = "success"
)

// Dependencies configures the collaborators used by the scheduler.
// Nil members fall back to OS-backed defaults and a discarding reporter.
type Dependencies struct {
	Logger               *zap.Logger
	Runner               execshell.CommandRunner
	Resolver             render.BinaryResolver
	Reporter             reporting.SummaryReporter
	HumanReadableLogging bool
}

// RuntimeOptions captures per-run execution modifiers.
type RuntimeOptions struct {
	// MaxWorkers bounds concurrently running jobs; zero means unbounded.
	MaxWorkers int
	// HardCancel kills in-flight subprocesses when the run context is cancelled.
	HardCancel bool
	// StepPolicy decides step success; nil uses ExitCodePolicy.
	StepPolicy StepPolicy
}

// Executor plans and runs jobs across the dependency graph.
type Executor struct {
	logger       *zap.Logger
	reporter     reporting.SummaryReporter
	renderer     render.Renderer
	stepExecutor StepExecutor
	now          func() time.Time
}

// NewExecutor constructs an Executor from the provided dependencies.
func NewExecutor(dependencies Dependencies) (*Executor, error) {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := dependencies.Runner
	if runner == nil {
		runner = execshell.NewOSCommandRunner()
	}
	resolver := dependencies.Resolver
	if resolver == nil {
		resolver = execshell.NewPathResolver()
	}
	reporter := dependencies.Reporter
	if reporter == nil {
		reporter = reporting.NewStructuredReporter(io.Discard, io.Discard)
	}

	shellExecutor, shellError := execshell.NewShellExecutor(logger, runner, dependencies.HumanReadableLogging)
	if shellError != nil {
		return nil, shellError
	}

	return &Executor{
		logger:       logger,
		reporter:     reporter,
		renderer:     render.NewRenderer(resolver),
		stepExecutor: NewStepExecutor(shellExecutor),
		now:          time.Now,
	}, nil
}

// Renderer exposes the renderer used for steps, for dry-run display.
func (executor *Executor) Renderer() render.Renderer {
	return executor.renderer
}

// Plan resolves the selection against the configuration without starting any process.
func (executor *Executor) Plan(configuration jobs.Configuration, selected []string) (ExecutionPlan, error) {
	return BuildExecutionPlan(configuration, selected)
}

// Execute runs the selected jobs and their requirements.
// Structural problems (unknown jobs, undefined requirements, cycles) are returned as errors before
// any process starts; job and step failures are reported through the RunReport only.
func (executor *Executor) Execute(executionContext context.Context, configuration jobs.Configuration, selected []string, options RuntimeOptions) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		StartTime: executor.now(),
	}

	plan, planError := executor.Plan(configuration, selected)
	if planError != nil {
		report.EndTime = executor.now()
		report.Duration = report.EndTime.Sub(report.StartTime)
		return report, planError
	}
	report.Stages = plan.Stages

	executor.logger.Info(runPlanLogMessage,
		zap.String(runIDFieldName, report.RunID),
		zap.Any(stagesFieldName, plan.Stages),
	)

	coordinator := newRunCoordinator(executionContext, plan, configuration, options, executor)
	jobReports, runError := coordinator.run()
	if runError != nil {
		return report, runError
	}

	report.Jobs = jobReports
	report.Success = true
	for _, jobReport := range jobReports {
		if !jobReport.Succeeded() {
			report.Success = false
		}
	}
	report.EndTime = executor.now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Summary = executor.reporter.SummaryData()

	executor.logger.Info(runSummaryLogMessage,
		zap.String(runIDFieldName, report.RunID),
		zap.Bool(successFieldName, report.Success),
		zap.Any(summaryFieldName, report.Summary),
	)
	return report, nil
}
