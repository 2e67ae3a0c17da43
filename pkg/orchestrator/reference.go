package orchestrator

import "time"

// NewBulkReference synthesizes the human-readable AnalysisSession
// reference for a bulk run (spec.md §4.5: "format analyse_YYYYMMDD_HHMM
// for bulk"). Callers create the Session before invoking AnalyzeList, so
// the "now" clock and format choice live here rather than in
// pkg/repository (spec.md §4.5 SessionRepo.create doc).
func NewBulkReference(now time.Time) string {
	return "analyse_" + now.UTC().Format("20060102_1504")
}
