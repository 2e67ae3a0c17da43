package orchestrator

import (
	"time"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// ListAnalysisParams identifies the (board, list) pair to run one pass
// over, plus the session/scope the caller already created (spec.md §4.1:
// "Caller has already created the Session + BoardScope").
type ListAnalysisParams struct {
	BoardID   string
	ListID    string
	BoardName string
	ListName  string
	Token     string

	// BoardScopeID is nil for ad-hoc/preview runs that should not
	// persist Ticket/History rows (spec.md §4.1: "(when boardScopeId is
	// supplied) persisted history").
	BoardScopeID *uint
}

// CardResult is one element of ListAnalysisSummary.CardsAnalysis
// (spec.md §4.1).
type CardResult struct {
	CardID        string `json:"card_id"`
	CardName      string `json:"card_name"`
	Criticality   string `json:"criticality_level"`
	Justification string `json:"justification"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	FromCache     bool   `json:"from_cache"`
	CardMoved     bool   `json:"card_moved,omitempty"`
	TargetListID  string `json:"target_list_id,omitempty"`
	TargetListName string `json:"target_list_name,omitempty"`

	// Actions records per-step error messages keyed by "label", "comment",
	// "move" (spec.md §9: "per-card actions return {ok|err} captured on
	// the card's result map").
	Actions map[string]string `json:"actions,omitempty"`
}

// BoardAnalysis is the counts/rate block of ListAnalysisSummary
// (spec.md §4.1: "CRITICAL_TOTAL, NON_CRITICAL, per-level counts,
// success_rate").
type BoardAnalysis struct {
	TotalCards  int       `json:"total_cards"`
	High        int       `json:"HIGH"`
	Medium      int       `json:"MEDIUM"`
	Low         int       `json:"LOW"`
	SuccessRate float64   `json:"success_rate"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// ListAnalysisSummary is the contract Orchestrator.AnalyzeList returns
// (spec.md §4.1).
type ListAnalysisSummary struct {
	BoardAnalysis     BoardAnalysis `json:"board_analysis"`
	CardsAnalysis     []CardResult  `json:"cards_analysis"`
	SavedTickets      []uint        `json:"saved_tickets,omitempty"`
	TicketsSavedCount int           `json:"tickets_saved_count,omitempty"`

	// Error is set, with every other field zero, when the provider fetch
	// itself fails (spec.md §4.1: "provider fetch failure → returns
	// {error: string}; orchestrator does not raise").
	Error string `json:"error,omitempty"`
}

// queuedCard is a card pending batch analysis, carrying enough of the
// originating models.Card to act on the board afterward.
type queuedCard struct {
	index   int
	card    models.Card
	payload models.CardPayload
}

// cachedResult is a card whose History was reusable (spec.md §4.1
// cache rule); it skips the LLM entirely.
type cachedResult struct {
	index  int
	ticket *models.Ticket
	latest *models.AnalysisHistory
}
