package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/reporting"
)

const (
	runCancelledReason         = "run cancelled"
	requiredJobFailedTemplate  = "required job %q failed"
	requiredJobCancelTemplate  = "required job %q was cancelled"
	requiredJobSkippedTemplate = "required job %q was skipped"
	stepFailureMessageTemplate = "step %d (%s) exited with code %d"
	jobFailureMessageTemplate  = "failed after %d step(s)"
	jobCancelledMessage        = "stopped by cancellation"
	jobSuccessMessageTemplate  = "succeeded after %d step(s)"
	jobStartMessage            = "started"
	schedulerStalledMessage    = "scheduler stalled with pending jobs and nothing running"
	jobStateLogMessage         = "job_state"
	jobCompleteLogMessage      = "job_complete"
	jobFieldName               = "job"
	stateFieldName             = "state"
	durationFieldName          = "duration"
	reasonFieldName            = "reason"
	exitCodeDetailName         = "exit_code"
	stepDetailName             = "step"
	contextDetailName          = "context"
	cancelledDetailName        = "cancelled"
	trueDetailValue            = "true"
)

var errSchedulerStalled = errors.New(schedulerStalledMessage)

// runCoordinator owns dispatch for one run. All state transitions happen on the coordinator
// goroutine under mutex; job goroutines only report completions over the channel.
type runCoordinator struct {
	executionContext context.Context
	stepContext      context.Context
	plan             ExecutionPlan
	configuration    jobs.Configuration
	policy           StepPolicy
	executor         *Executor
	slots            *semaphore.Weighted

	mutex       sync.Mutex
	states      *jobStateTable
	reports     map[string]JobReport
	completions chan JobReport
	running     int
}

func newRunCoordinator(executionContext context.Context, plan ExecutionPlan, configuration jobs.Configuration, options RuntimeOptions, executor *Executor) *runCoordinator {
	if executionContext == nil {
		executionContext = context.Background()
	}
	stepContext := context.WithoutCancel(executionContext)
	if options.HardCancel {
		stepContext = executionContext
	}
	policy := options.StepPolicy
	if policy == nil {
		policy = ExitCodePolicy{}
	}
	var slots *semaphore.Weighted
	if options.MaxWorkers > 0 {
		slots = semaphore.NewWeighted(int64(options.MaxWorkers))
	}

	names := plan.Jobs()
	return &runCoordinator{
		executionContext: executionContext,
		stepContext:      stepContext,
		plan:             plan,
		configuration:    configuration,
		policy:           policy,
		executor:         executor,
		slots:            slots,
		states:           newJobStateTable(names),
		reports:          make(map[string]JobReport, len(names)),
		completions:      make(chan JobReport, len(names)),
	}
}

func (coordinator *runCoordinator) run() ([]JobReport, error) {
	if dispatchError := coordinator.dispatch(); dispatchError != nil {
		return nil, dispatchError
	}

	for !coordinator.finished() {
		if coordinator.running == 0 {
			return nil, errSchedulerStalled
		}
		completion := <-coordinator.completions
		coordinator.running--
		if completeError := coordinator.complete(completion); completeError != nil {
			return nil, completeError
		}
		if dispatchError := coordinator.dispatch(); dispatchError != nil {
			return nil, dispatchError
		}
	}
	return coordinator.orderedReports(), nil
}

func (coordinator *runCoordinator) finished() bool {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	return coordinator.states.allTerminal()
}

// dispatch starts every pending job whose requirements succeeded, in plan order, while slots last.
func (coordinator *runCoordinator) dispatch() error {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()

	for _, name := range coordinator.plan.Jobs() {
		if coordinator.states.state(name) != JobStatePending || !coordinator.requirementsSucceeded(name) {
			continue
		}
		if coordinator.executionContext.Err() != nil {
			if skipError := coordinator.skip(name, runCancelledReason); skipError != nil {
				return skipError
			}
			continue
		}
		if coordinator.slots != nil && !coordinator.slots.TryAcquire(1) {
			continue
		}
		if transitionError := coordinator.transition(name, JobStateRunning); transitionError != nil {
			return transitionError
		}
		coordinator.executor.reporter.Report(reporting.Event{
			Code:    reporting.EventCodeJobStart,
			Level:   reporting.EventLevelInfo,
			Job:     name,
			Message: jobStartMessage,
		})
		coordinator.running++
		go coordinator.runJob(name)
	}
	return nil
}

func (coordinator *runCoordinator) requirementsSucceeded(name string) bool {
	for _, requirement := range coordinator.plan.Requires(name) {
		if coordinator.states.state(requirement) != JobStateSucceeded {
			return false
		}
	}
	return true
}

func (coordinator *runCoordinator) complete(report JobReport) error {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()

	if transitionError := coordinator.transition(report.Name, report.State); transitionError != nil {
		return transitionError
	}
	coordinator.reports[report.Name] = report
	coordinator.executor.reporter.RecordJobDuration(report.Name, report.Duration)
	coordinator.executor.logger.Info(jobCompleteLogMessage,
		zap.String(jobFieldName, report.Name),
		zap.String(stateFieldName, string(report.State)),
		zap.Duration(durationFieldName, report.Duration),
	)

	if report.State == JobStateSucceeded {
		coordinator.executor.reporter.Report(reporting.Event{
			Code:    reporting.EventCodeJobSuccess,
			Level:   reporting.EventLevelInfo,
			Job:     report.Name,
			Message: fmt.Sprintf(jobSuccessMessageTemplate, len(report.Results)),
		})
		return nil
	}

	message := fmt.Sprintf(jobFailureMessageTemplate, len(report.Results))
	dependentReason := fmt.Sprintf(requiredJobFailedTemplate, report.Name)
	details := map[string]string{}
	if report.Cancelled {
		message = jobCancelledMessage
		dependentReason = fmt.Sprintf(requiredJobCancelTemplate, report.Name)
		details[cancelledDetailName] = trueDetailValue
	}
	coordinator.executor.reporter.Report(reporting.Event{
		Code:    reporting.EventCodeJobFailure,
		Level:   reporting.EventLevelError,
		Job:     report.Name,
		Message: message,
		Details: details,
	})
	return coordinator.skipDependents(report.Name, dependentReason)
}

// skip marks a pending job skipped and propagates to its pending dependents. Caller holds the mutex.
func (coordinator *runCoordinator) skip(name string, reason string) error {
	if transitionError := coordinator.transition(name, JobStateSkipped); transitionError != nil {
		return transitionError
	}
	coordinator.reports[name] = JobReport{Name: name, State: JobStateSkipped, SkipReason: reason}
	coordinator.executor.reporter.Report(reporting.Event{
		Code:    reporting.EventCodeJobSkipped,
		Level:   reporting.EventLevelWarn,
		Job:     name,
		Message: reason,
		Details: map[string]string{reasonFieldName: reason},
	})
	return coordinator.skipDependents(name, fmt.Sprintf(requiredJobSkippedTemplate, name))
}

func (coordinator *runCoordinator) skipDependents(name string, reason string) error {
	for _, dependent := range coordinator.plan.Dependents(name) {
		if coordinator.states.state(dependent) != JobStatePending {
			continue
		}
		if skipError := coordinator.skip(dependent, reason); skipError != nil {
			return skipError
		}
	}
	return nil
}

func (coordinator *runCoordinator) transition(name string, next JobState) error {
	if transitionError := coordinator.states.transition(name, next); transitionError != nil {
		return transitionError
	}
	coordinator.executor.logger.Debug(jobStateLogMessage,
		zap.String(jobFieldName, name),
		zap.String(stateFieldName, string(next)),
	)
	return nil
}

// runJob executes the job once per configured context, in declared order.
// Within a context the steps run in order and stop at the first failure; a failed context
// fails the job without stopping the remaining contexts. Once the run is cancelled no
// further step is started.
func (coordinator *runCoordinator) runJob(name string) {
	startTime := coordinator.executor.now()
	job, _ := coordinator.configuration.Job(name)
	report := JobReport{Name: name, State: JobStateSucceeded}

	for _, runtimeContext := range coordinator.configuration.Contexts() {
		if report.Cancelled {
			break
		}
		coordinator.runJobIn(job, runtimeContext, &report)
	}

	report.Duration = coordinator.executor.now().Sub(startTime)
	if coordinator.slots != nil {
		coordinator.slots.Release(1)
	}
	coordinator.completions <- report
}

func (coordinator *runCoordinator) runJobIn(job jobs.Job, runtimeContext jobs.Context, report *JobReport) {
	templates := job.Run()
	stepIndex := 0
	for step, renderError := range PrepareJob(job, coordinator.configuration, runtimeContext, coordinator.executor.renderer) {
		if coordinator.executionContext.Err() != nil {
			report.State = JobStateFailed
			report.Cancelled = true
			return
		}

		var result jobs.Result
		if renderError != nil {
			result = templateFailureResult(templates[stepIndex], runtimeContext, renderError)
		} else {
			result = coordinator.executor.stepExecutor.Execute(coordinator.stepContext, step)
		}
		stepIndex++
		report.Results = append(report.Results, result)

		if renderError == nil && coordinator.policy.Succeeded(result) {
			continue
		}
		report.State = JobStateFailed
		if result.ExitCode == jobs.ExitCodeCancelled && coordinator.executionContext.Err() != nil {
			report.Cancelled = true
		}
		details := map[string]string{
			stepDetailName:     fmt.Sprint(stepIndex),
			exitCodeDetailName: fmt.Sprint(result.ExitCode),
		}
		if len(result.Context) > 0 {
			details[contextDetailName] = result.Context
		}
		coordinator.executor.reporter.Report(reporting.Event{
			Code:    reporting.EventCodeStepFailure,
			Level:   reporting.EventLevelWarn,
			Job:     report.Name,
			Message: fmt.Sprintf(stepFailureMessageTemplate, stepIndex, strings.Join(result.Command, " "), result.ExitCode),
			Details: details,
		})
		return
	}
}

func (coordinator *runCoordinator) orderedReports() []JobReport {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()

	names := coordinator.plan.Jobs()
	ordered := make([]JobReport, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, coordinator.reports[name])
	}
	return ordered
}
