package reanalysis

import "time"

// NewReference synthesizes the AnalysisSession reference for a
// reanalysis run (spec.md §4.5: "format REANALYSE-YYYYMMDD_HHMMSS for
// reanalysis").
func NewReference(now time.Time) string {
	return "REANALYSE-" + now.UTC().Format("20060102_150405")
}
