package taskrunner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tyemirov/jobrun/internal/reporting"
	"github.com/tyemirov/jobrun/internal/workflow"
)

// RenderSummaryLine returns the one-line summary printed after a run, or "" when no job was planned.
func RenderSummaryLine(report workflow.RunReport) string {
	if len(report.Jobs) == 0 {
		return ""
	}

	counts := report.Counts()
	parts := []string{
		fmt.Sprintf("Summary: total.jobs=%d", len(report.Jobs)),
		fmt.Sprintf("succeeded=%d", counts[workflow.JobStateSucceeded]),
		fmt.Sprintf("failed=%d", counts[workflow.JobStateFailed]),
		fmt.Sprintf("skipped=%d", counts[workflow.JobStateSkipped]),
	}

	data := report.Summary
	if len(data.EventCounts) > 0 {
		keys := make([]string, 0, len(data.EventCounts))
		for key := range data.EventCounts {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", key, data.EventCounts[key]))
		}
	}

	parts = append(parts, fmt.Sprintf("%s=%d", reporting.EventLevelWarn, data.LevelCounts[reporting.EventLevelWarn]))
	parts = append(parts, fmt.Sprintf("%s=%d", reporting.EventLevelError, data.LevelCounts[reporting.EventLevelError]))

	durationHuman := strings.TrimSpace(data.DurationHuman)
	if durationHuman == "" {
		durationHuman = "0s"
	}
	parts = append(parts, fmt.Sprintf("duration_human=%s", durationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", data.DurationMilliseconds))

	return strings.Join(parts, " ")
}
