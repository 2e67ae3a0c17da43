package models

import "time"

// AnalysisSession ("analyse" in spec.md §3) is one logical evaluation run,
// either a bulk list pass (Reanalyse=false) or a single-ticket
// re-evaluation (Reanalyse=true).
type AnalysisSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Reference string    `gorm:"uniqueIndex;size:128" json:"reference"`
	Reanalyse bool      `json:"reanalyse"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AnalysisSession) TableName() string { return "analysis_sessions" }

// BoardScope ("analyse_board" in spec.md §3) anchors one (session,
// platform) tuple; Ticket rows reference the scope that first observed
// them.
type BoardScope struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"index;not null" json:"sessionId"`
	Platform  string `gorm:"size:64;not null" json:"platform"`
}

func (BoardScope) TableName() string { return "board_scopes" }
