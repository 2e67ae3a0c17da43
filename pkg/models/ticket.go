package models

// Ticket is the canonical record of one externally-identified card
// (spec.md §3). ExternalID is unique across all tickets; re-observing the
// same card never creates a new row (invariant 1 in spec.md §8).
type Ticket struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	ExternalID   string  `gorm:"uniqueIndex;size:128;not null" json:"externalId"`
	BoardScopeID uint    `gorm:"index;not null" json:"boardScopeId"`
	BoardName    string  `gorm:"size:255" json:"boardName"`
	Metadata     JSONMap `gorm:"type:text" json:"metadata"`
}

func (Ticket) TableName() string { return "tickets" }

// Recognized Ticket.Metadata keys, per spec.md §3.
const (
	MetaName               = "name"
	MetaDesc               = "desc"
	MetaDue                = "due"
	MetaURL                = "url"
	MetaLabels             = "labels"
	MetaMembers            = "members"
	MetaBoardID            = "boardId"
	MetaBoardName          = "boardName"
	MetaListID             = "listId"
	MetaListName           = "listName"
	MetaLastMovedAt        = "last_moved_at"
	MetaLastAnalysisConfig = "last_analysis_config"
	MetaAnalysisResult     = "analysis_result"
)
