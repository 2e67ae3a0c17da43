package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// persist commits Ticket/History writes for the run inside one gorm
// transaction (spec.md §4.1 step 6, §5 "Persistence is serialized"). A
// commit failure rolls back the persistence phase only; the board
// actions already performed in actOnCards are not reversed (spec.md
// §4.1 step 6: "at-least-once for board mutations").
func (o *Orchestrator) persist(ctx context.Context, boardScopeID uint, params ListAnalysisParams, activeConfig *models.Config, actioned []actionedCard) ([]uint, error) {
	scope, err := o.repos.BoardScope.Get(ctx, boardScopeID)
	if err != nil {
		return nil, fmt.Errorf("load board scope %d: %w", boardScopeID, err)
	}

	var savedTicketIDs []uint
	err = o.repos.Transaction(func(tx *repository.Repositories) error {
		for _, a := range actioned {
			criticality, justification, shouldPersist := persistedOutcome(a)
			if !shouldPersist {
				continue
			}

			ticket, _, err := tx.Ticket.EnsureTicket(ctx, boardScopeID, a.queued.card, params.BoardName, params.ListName, params.BoardID, params.ListID)
			if err != nil {
				return fmt.Errorf("ensure ticket %s: %w", a.queued.card.ID, err)
			}

			if _, err := tx.History.Append(ctx, ticket.ID, scope.SessionID, criticality, justification); err != nil {
				return fmt.Errorf("append history for ticket %s: %w", a.queued.card.ID, err)
			}

			if a.moved {
				ticket.Metadata[models.MetaListID] = a.targetListID
				ticket.Metadata[models.MetaListName] = a.targetListName
				ticket.Metadata[models.MetaLastMovedAt] = time.Now().UTC().Format(time.RFC3339)
			}
			if activeConfig != nil {
				ticket.Metadata[models.MetaLastAnalysisConfig] = map[string]interface{}(activeConfig.Data)
			}
			if err := tx.Ticket.UpdateMetadata(ctx, ticket); err != nil {
				return fmt.Errorf("snapshot ticket metadata %s: %w", a.queued.card.ID, err)
			}

			savedTicketIDs = append(savedTicketIDs, ticket.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return savedTicketIDs, nil
}

// persistedOutcome decides whether, and as what, one actioned card's
// verdict is written to History. HIGH/MEDIUM/LOW verdicts persist as
// themselves; OUT_OF_CONTEXT persists as a "low" row carrying a
// justification that records the out-of-context verdict, per the pinned
// choice in DESIGN.md resolving spec.md §8 S6. Unsuccessful analyses
// write nothing (spec.md §4.9: "no History is written for it").
func persistedOutcome(a actionedCard) (models.Criticality, string, bool) {
	if !a.result.Success {
		return "", "", false
	}
	if a.level == analyzer.LevelOutOfContext {
		return models.CriticalityLow, "OUT_OF_CONTEXT: " + a.result.Justification, true
	}
	criticality, ok := models.ParseCriticality(string(a.level))
	if !ok {
		return "", "", false
	}
	return criticality, a.result.Justification, true
}
