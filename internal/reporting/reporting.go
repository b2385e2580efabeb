// Package reporting prints job lifecycle events and aggregates run counters.
package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	levelFieldWidth   = 5
	codeFieldWidth    = 12
	jobFieldWidth     = 20
	messageFieldWidth = 40
	timestampLayout   = "15:04:05"
	unknownCode       = "UNKNOWN"
)

// Event codes emitted by the scheduler.
const (
	EventCodeJobStart    = "JOB_START"
	EventCodeJobSuccess  = "JOB_SUCCESS"
	EventCodeJobFailure  = "JOB_FAILURE"
	EventCodeJobSkipped  = "JOB_SKIPPED"
	EventCodeStepFailure = "STEP_FAILURE"
)

// EventLevel describes the severity of a reported event.
type EventLevel string

// Supported event levels.
const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// Event captures a single job lifecycle transition.
type Event struct {
	Timestamp time.Time
	Level     EventLevel
	Code      string
	Job       string
	Message   string
	Details   map[string]string
}

// Reporter emits events.
type Reporter interface {
	Report(event Event)
}

// SummaryReporter augments Reporter with counters and a run summary.
type SummaryReporter interface {
	Reporter
	RecordEvent(code string, level EventLevel)
	RecordJobDuration(jobName string, duration time.Duration)
	SummaryData() SummaryData
	Summary() string
}

// SummaryData is a serializable snapshot of reporter counters.
type SummaryData struct {
	TotalJobs            int                           `json:"total_jobs" yaml:"total_jobs"`
	EventCounts          map[string]int                `json:"event_counts" yaml:"event_counts"`
	LevelCounts          map[EventLevel]int            `json:"level_counts" yaml:"level_counts"`
	DurationHuman        string                        `json:"duration_human" yaml:"duration_human"`
	DurationMilliseconds int64                         `json:"duration_ms" yaml:"duration_ms"`
	JobDurations         map[string]JobDurationSummary `json:"job_durations" yaml:"job_durations"`
}

// JobDurationSummary aggregates timing for one job name.
type JobDurationSummary struct {
	Count                     int   `json:"count" yaml:"count"`
	TotalDurationMilliseconds int64 `json:"total_duration_ms" yaml:"total_duration_ms"`
}

// ReporterOption customises StructuredReporter behaviour.
type ReporterOption func(*StructuredReporter)

// WithConsoleFormat switches between aligned console lines and "human | machine" lines.
func WithConsoleFormat(enabled bool) ReporterOption {
	return func(reporter *StructuredReporter) {
		reporter.consoleFormat = enabled
	}
}

// WithNowProvider overrides the time source.
func WithNowProvider(provider func() time.Time) ReporterOption {
	return func(reporter *StructuredReporter) {
		if provider != nil {
			reporter.now = provider
			reporter.startTime = provider()
		}
	}
}

// StructuredReporter writes events to output and error sinks. It is safe for concurrent use.
type StructuredReporter struct {
	outputWriter  io.Writer
	errorWriter   io.Writer
	consoleFormat bool
	now           func() time.Time

	mutex        sync.Mutex
	startTime    time.Time
	eventCounts  map[string]int
	levelCounts  map[EventLevel]int
	seenJobs     map[string]struct{}
	jobDurations map[string]*durationAccumulator
}

type durationAccumulator struct {
	count int
	total time.Duration
}

// NewStructuredReporter constructs a reporter. A nil output falls back to stdout and a nil
// error sink falls back to output.
func NewStructuredReporter(output io.Writer, errors io.Writer, options ...ReporterOption) *StructuredReporter {
	if output == nil {
		output = os.Stdout
	}
	if errors == nil {
		errors = output
	}

	reporter := &StructuredReporter{
		outputWriter:  output,
		errorWriter:   errors,
		consoleFormat: true,
		now:           time.Now,
		startTime:     time.Now(),
		eventCounts:   make(map[string]int),
		levelCounts:   make(map[EventLevel]int),
		seenJobs:      make(map[string]struct{}),
		jobDurations:  make(map[string]*durationAccumulator),
	}
	for _, option := range options {
		option(reporter)
	}
	return reporter
}

// RecordEvent increments counters without printing anything.
func (reporter *StructuredReporter) RecordEvent(code string, level EventLevel) {
	if reporter == nil {
		return
	}
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	reporter.eventCounts[normalizeCode(code)]++
	reporter.levelCounts[normalizeLevel(level)]++
}

// RecordJobDuration adds a job's wall time to the summary.
func (reporter *StructuredReporter) RecordJobDuration(jobName string, duration time.Duration) {
	if reporter == nil {
		return
	}
	trimmedName := strings.TrimSpace(jobName)
	if len(trimmedName) == 0 {
		return
	}
	if duration < 0 {
		duration = 0
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	accumulator, exists := reporter.jobDurations[trimmedName]
	if !exists {
		accumulator = &durationAccumulator{}
		reporter.jobDurations[trimmedName] = accumulator
	}
	accumulator.count++
	accumulator.total += duration
	reporter.seenJobs[trimmedName] = struct{}{}
}

// Report counts the event and prints it. Error events go to the error sink.
func (reporter *StructuredReporter) Report(event Event) {
	if reporter == nil {
		return
	}
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = reporter.now()
	}
	level := normalizeLevel(event.Level)
	code := normalizeCode(event.Code)
	jobName := strings.TrimSpace(event.Job)
	message := strings.TrimSpace(event.Message)

	writer := reporter.outputWriter
	if level == EventLevelError {
		writer = reporter.errorWriter
	}

	if len(jobName) > 0 {
		reporter.seenJobs[jobName] = struct{}{}
	}
	reporter.eventCounts[code]++
	reporter.levelCounts[level]++

	if reporter.consoleFormat {
		fmt.Fprintln(writer, formatConsoleLine(timestamp, level, code, jobName, message))
		return
	}
	fmt.Fprintf(writer, "%s | %s\n", formatHumanPart(timestamp, level, code, jobName, message), formatMachinePart(code, jobName, event.Details))
}

// SummaryData produces a snapshot of the counters.
func (reporter *StructuredReporter) SummaryData() SummaryData {
	if reporter == nil {
		return SummaryData{
			EventCounts:   make(map[string]int),
			LevelCounts:   make(map[EventLevel]int),
			JobDurations:  make(map[string]JobDurationSummary),
			DurationHuman: "0s",
		}
	}
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	duration := reporter.now().Sub(reporter.startTime)
	eventCounts := make(map[string]int, len(reporter.eventCounts))
	for code, count := range reporter.eventCounts {
		eventCounts[code] = count
	}
	levelCounts := make(map[EventLevel]int, len(reporter.levelCounts))
	for level, count := range reporter.levelCounts {
		levelCounts[level] = count
	}
	jobDurations := make(map[string]JobDurationSummary, len(reporter.jobDurations))
	for name, accumulator := range reporter.jobDurations {
		jobDurations[name] = JobDurationSummary{
			Count:                     accumulator.count,
			TotalDurationMilliseconds: durationMilliseconds(accumulator.total),
		}
	}

	return SummaryData{
		TotalJobs:            len(reporter.seenJobs),
		EventCounts:          eventCounts,
		LevelCounts:          levelCounts,
		DurationHuman:        formatDuration(duration),
		DurationMilliseconds: durationMilliseconds(duration),
		JobDurations:         jobDurations,
	}
}

// Summary renders the counters as a single line.
func (reporter *StructuredReporter) Summary() string {
	data := reporter.SummaryData()
	if data.TotalJobs == 0 && len(data.EventCounts) == 0 {
		return "Summary: total.jobs=0 duration_human=0s duration_ms=0"
	}

	codes := make([]string, 0, len(data.EventCounts))
	for code := range data.EventCounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	parts := make([]string, 0, len(codes)+5)
	parts = append(parts, fmt.Sprintf("Summary: total.jobs=%d", data.TotalJobs))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", code, data.EventCounts[code]))
	}
	parts = append(parts, fmt.Sprintf("%s=%d", EventLevelWarn, data.LevelCounts[EventLevelWarn]))
	parts = append(parts, fmt.Sprintf("%s=%d", EventLevelError, data.LevelCounts[EventLevelError]))
	parts = append(parts, fmt.Sprintf("duration_human=%s", data.DurationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", data.DurationMilliseconds))
	return strings.Join(parts, " ")
}

func formatConsoleLine(timestamp time.Time, level EventLevel, code string, jobName string, message string) string {
	levelField := fmt.Sprintf("%-*s", levelFieldWidth, string(level))
	codeField := fmt.Sprintf("%-*s", codeFieldWidth, code)
	line := fmt.Sprintf("%s %s %s", timestamp.Format(timestampLayout), levelField, codeField)
	if len(jobName) > 0 {
		line = fmt.Sprintf("%s [%s]", line, jobName)
	}
	if len(message) > 0 {
		line = fmt.Sprintf("%s %s", line, message)
	}
	return line
}

func formatHumanPart(timestamp time.Time, level EventLevel, code string, jobName string, message string) string {
	return fmt.Sprintf("%s %-*s %-*s %-*s %-*s",
		timestamp.Format(timestampLayout),
		levelFieldWidth, string(level),
		codeFieldWidth, code,
		jobFieldWidth, jobName,
		messageFieldWidth, message,
	)
}

func formatMachinePart(code string, jobName string, details map[string]string) string {
	values := make(map[string]string, len(details)+2)
	for key, value := range details {
		values[key] = value
	}
	values["event"] = code
	if len(jobName) > 0 {
		values["job"] = jobName
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, values[key]))
	}
	return strings.Join(pairs, " ")
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.String()
}

func durationMilliseconds(value time.Duration) int64 {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.Milliseconds()
}

func normalizeLevel(level EventLevel) EventLevel {
	switch level {
	case EventLevelWarn, EventLevelError:
		return level
	default:
		return EventLevelInfo
	}
}

func normalizeCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) == 0 {
		return unknownCode
	}
	return strings.ReplaceAll(strings.ToUpper(trimmed), " ", "_")
}
