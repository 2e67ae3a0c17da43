package models

import "time"

// Criticality is the normalized (lowercase) storage representation of a
// criticality level. The wire/LLM representation is uppercase
// (spec.md GLOSSARY).
type Criticality string

const (
	CriticalityHigh   Criticality = "high"
	CriticalityMedium Criticality = "medium"
	CriticalityLow    Criticality = "low"
)

// ParseCriticality lowercases and validates an uppercase wire-level
// criticality level (HIGH|MEDIUM|LOW). OUT_OF_CONTEXT is not a storage
// criticality; callers resolve it before calling this.
func ParseCriticality(level string) (Criticality, bool) {
	switch level {
	case "HIGH", "high":
		return CriticalityHigh, true
	case "MEDIUM", "medium":
		return CriticalityMedium, true
	case "LOW", "low":
		return CriticalityLow, true
	default:
		return "", false
	}
}

// AnalysisHistory is an append-only record of one evaluation of one ticket
// (spec.md §3, invariant 2 in §8). Rows are never updated or deleted.
type AnalysisHistory struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	TicketID       uint        `gorm:"index;not null" json:"ticketId"`
	SessionID      uint        `gorm:"index;not null" json:"sessionId"`
	Criticality    Criticality `gorm:"size:16;not null" json:"criticality"`
	Justification  JSONMap     `gorm:"type:text" json:"justification"`
	AnalyzedAt     time.Time   `gorm:"index" json:"analyzedAt"`
}

func (AnalysisHistory) TableName() string { return "analysis_histories" }

// JustificationText extracts the "justification" key, the one recognized
// field of the Justification bag (spec.md §3).
func (h AnalysisHistory) JustificationText() string {
	if h.Justification == nil {
		return ""
	}
	if v, ok := h.Justification["justification"].(string); ok {
		return v
	}
	return ""
}

// NewJustification builds the justification JSONMap from free text.
func NewJustification(text string) JSONMap {
	return JSONMap{"justification": text}
}
