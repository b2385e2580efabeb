package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/jobrun/internal/jobs"
	"github.com/tyemirov/jobrun/internal/render"
)

// ReportFormat selects how a RunReport is written.
type ReportFormat string

// Supported report formats.
const (
	ReportFormatText ReportFormat = "text"
	ReportFormatYAML ReportFormat = "yaml"
	ReportFormatJSON ReportFormat = "json"
)

const (
	unsupportedReportFormatTemplate = "unsupported report format %q"
	yamlIndentWidth                 = 2
	outputIndentPrefix              = "      "
)

// ParseReportFormat validates a user supplied format name.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch format := ReportFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "", ReportFormatText:
		return ReportFormatText, nil
	case ReportFormatYAML, ReportFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf(unsupportedReportFormatTemplate, raw)
	}
}

// FormatReport writes the report in the requested format.
func FormatReport(writer io.Writer, report RunReport, format ReportFormat) error {
	switch format {
	case ReportFormatText, "":
		return formatTextReport(writer, report)
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentWidth)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	case ReportFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", strings.Repeat(" ", yamlIndentWidth))
		return encoder.Encode(report)
	default:
		return fmt.Errorf(unsupportedReportFormatTemplate, format)
	}
}

func formatTextReport(writer io.Writer, report RunReport) error {
	var builder strings.Builder
	for _, jobReport := range report.Jobs {
		builder.WriteString(describeJob(jobReport))
		builder.WriteString("\n")
		if jobReport.State != JobStateFailed || len(jobReport.Results) == 0 {
			continue
		}
		_, failing := lastFailure(jobReport.Results)
		fmt.Fprintf(&builder, "    $ %s%s\n", contextPrefix(failing.Context), strings.Join(failing.Command, " "))
		writeIndented(&builder, failing.Stdout)
		writeIndented(&builder, failing.Stderr)
	}

	counts := report.Counts()
	outcome := "succeeded"
	if !report.Success {
		outcome = "failed"
	}
	fmt.Fprintf(&builder, "Run %s in %s: %d succeeded, %d failed, %d skipped\n",
		outcome,
		report.Duration.Round(time.Millisecond),
		counts[JobStateSucceeded],
		counts[JobStateFailed],
		counts[JobStateSkipped],
	)

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func describeJob(jobReport JobReport) string {
	label := fmt.Sprintf("%-11s %s", "["+string(jobReport.State)+"]", jobReport.Name)
	switch jobReport.State {
	case JobStateSkipped:
		return fmt.Sprintf("%s: %s", label, jobReport.SkipReason)
	case JobStateFailed:
		if jobReport.Cancelled || len(jobReport.Results) == 0 {
			return fmt.Sprintf("%s: cancelled after %d step(s)", label, len(jobReport.Results))
		}
		position, failing := lastFailure(jobReport.Results)
		if len(failing.Context) > 0 {
			return fmt.Sprintf("%s: step %d exited with code %d in context %s", label, position, failing.ExitCode, failing.Context)
		}
		return fmt.Sprintf("%s: step %d exited with code %d", label, position, failing.ExitCode)
	default:
		return fmt.Sprintf("%s (%d step(s), %s)", label, len(jobReport.Results), jobReport.Duration.Round(time.Millisecond))
	}
}

// lastFailure returns the last result with a non-zero exit and its 1-based step number within its context.
func lastFailure(results []jobs.Result) (int, jobs.Result) {
	failingIndex := len(results) - 1
	for index := len(results) - 1; index >= 0; index-- {
		if !results[index].Success() {
			failingIndex = index
			break
		}
	}
	failing := results[failingIndex]
	position := 1
	for index := failingIndex - 1; index >= 0 && results[index].Context == failing.Context; index-- {
		position++
	}
	return position, failing
}

func contextPrefix(name string) string {
	if len(name) == 0 {
		return ""
	}
	return "[" + name + "] "
}

func writeIndented(builder *strings.Builder, text string) {
	trimmed := strings.TrimRight(text, "\n")
	if len(strings.TrimSpace(trimmed)) == 0 {
		return
	}
	for _, line := range strings.Split(trimmed, "\n") {
		builder.WriteString(outputIndentPrefix)
		builder.WriteString(line)
		builder.WriteString("\n")
	}
}

// FormatPlan writes the stages of a plan and the commands each job would run, without running them.
func FormatPlan(writer io.Writer, plan ExecutionPlan, configuration jobs.Configuration, renderer render.Renderer) error {
	var builder strings.Builder
	for stageIndex, stage := range plan.Stages {
		fmt.Fprintf(&builder, "stage %d:\n", stageIndex+1)
		for _, name := range stage {
			job, _ := configuration.Job(name)
			requirements := plan.Requires(name)
			if len(requirements) > 0 {
				fmt.Fprintf(&builder, "  %s (requires %s)\n", name, strings.Join(requirements, ", "))
			} else {
				fmt.Fprintf(&builder, "  %s\n", name)
			}
			for _, runtimeContext := range configuration.Contexts() {
				prefix := contextPrefix(runtimeContext.Name())
				for step, renderError := range PrepareJob(job, configuration, runtimeContext, renderer) {
					if renderError != nil {
						fmt.Fprintf(&builder, "    ! %s%v\n", prefix, renderError)
						continue
					}
					fmt.Fprintf(&builder, "    $ %s%s\n", prefix, strings.Join(step.Command, " "))
				}
			}
		}
	}
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}
