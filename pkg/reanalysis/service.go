// Package reanalysis implements the detached re-evaluation subsystem of
// spec.md §4.6: locate a tracked ticket, re-run the Analyzer against a
// fresh Session, and append one History row without replaying any board
// action.
package reanalysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// AnalyzerAPI is the slice of pkg/analyzer.Analyzer this service needs.
type AnalyzerAPI interface {
	Reanalyze(ctx context.Context, card models.CardPayload, previous *models.AnalysisHistory) analyzer.Result
}

// Result is the outcome of one reanalysis call (spec.md §4.6).
type Result struct {
	TicketID      uint   `json:"ticket_id"`
	ExternalID    string `json:"external_id"`
	SessionID     uint   `json:"session_id"`
	Criticality   string `json:"criticality_level"`
	Justification string `json:"justification"`
	Success       bool   `json:"success"`

	// Error is set, with every other field zero, when the ticket can't
	// be located (spec.md §4.6: "Locate the Ticket by externalId; if
	// absent → {error: 'ticket not found'}").
	Error string `json:"error,omitempty"`
}

// Service runs reanalyze(externalTicketId).
type Service struct {
	analyzer AnalyzerAPI
	repos    *repository.Repositories
	log      hclog.Logger
}

// New builds a Service.
func New(az AnalyzerAPI, repos *repository.Repositories, log hclog.Logger) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{analyzer: az, repos: repos, log: log.Named("reanalysis")}
}

// Reanalyze re-evaluates the ticket identified by externalID (spec.md
// §4.6). A new Session (reanalyse=true) and BoardScope are created;
// exactly one new History row is appended to the existing Ticket. Board
// actions are never replayed.
func (s *Service) Reanalyze(ctx context.Context, externalID string) (*Result, error) {
	log := s.log.With("external_id", externalID)

	ticket, err := s.repos.Ticket.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Error: "ticket not found"}, nil
		}
		return nil, fmt.Errorf("look up ticket %s: %w", externalID, err)
	}

	previous, err := s.repos.History.Latest(ctx, ticket.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load latest history for ticket %s: %w", externalID, err)
	}
	var previousHistory *models.AnalysisHistory
	if err == nil {
		previousHistory = previous
	}

	payload := cardPayloadFromTicket(ticket)
	verdict := s.analyzer.Reanalyze(ctx, payload, previousHistory)

	originalScope, err := s.repos.BoardScope.Get(ctx, ticket.BoardScopeID)
	if err != nil {
		return nil, fmt.Errorf("load originating board scope for ticket %s: %w", externalID, err)
	}

	result := &Result{
		TicketID:      ticket.ID,
		ExternalID:    externalID,
		Criticality:   string(verdict.Level),
		Justification: verdict.Justification,
		Success:       verdict.Success,
	}

	if !verdict.Success {
		log.Warn("reanalysis llm call failed, not persisting a new history row", "error", verdict.Error)
		return result, nil
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		session, err := tx.Session.Create(ctx, NewReference(time.Now()), true)
		if err != nil {
			return fmt.Errorf("create reanalysis session: %w", err)
		}
		if _, err := tx.BoardScope.Create(ctx, session.ID, originalScope.Platform); err != nil {
			return fmt.Errorf("create reanalysis board scope: %w", err)
		}

		criticality, justification, ok := persistedOutcome(verdict)
		if !ok {
			return nil
		}

		if _, err := tx.History.Append(ctx, ticket.ID, session.ID, criticality, justification); err != nil {
			return fmt.Errorf("append reanalysis history for ticket %s: %w", externalID, err)
		}

		ticket.Metadata[models.MetaAnalysisResult] = map[string]interface{}{
			"criticality_level": string(verdict.Level),
			"justification":     verdict.Justification,
			"success":           verdict.Success,
		}
		if err := tx.Ticket.UpdateMetadata(ctx, ticket); err != nil {
			return fmt.Errorf("update ticket analysis_result cache %s: %w", externalID, err)
		}

		result.SessionID = session.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// persistedOutcome mirrors pkg/orchestrator's pinned OUT_OF_CONTEXT
// persistence choice (SPEC_FULL SUPPLEMENTED FEATURES #1): HIGH/MEDIUM/LOW
// persist as themselves, OUT_OF_CONTEXT persists as "low" with an
// annotated justification.
func persistedOutcome(verdict analyzer.Result) (models.Criticality, string, bool) {
	if verdict.Level == analyzer.LevelOutOfContext {
		return models.CriticalityLow, "OUT_OF_CONTEXT: " + verdict.Justification, true
	}
	criticality, ok := models.ParseCriticality(string(verdict.Level))
	if !ok {
		return "", "", false
	}
	return criticality, verdict.Justification, true
}
