// Package orchestrator implements the analysis pipeline of spec.md §4.1:
// fetch cards from the board, classify them against the cache rule,
// batch-analyze the rest through the Analyzer, fan actions out to the
// board, and commit Ticket/History writes atomically. Grounded on the
// teacher's pkg/indexer/pipeline package, which runs a similarly staged
// fetch → transform → bounded-concurrent-step → persist flow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/cache"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// BoardAPI is the slice of pkg/board.Client the orchestrator depends on,
// narrowed to an interface so tests can substitute a fake (spec.md §4.3).
type BoardAPI interface {
	GetListCards(ctx context.Context, listID, token string) ([]models.Card, error)
	AddLabel(ctx context.Context, cardID, boardID, token string, criticality models.Criticality, existingLabels []models.Label) error
	AddComment(ctx context.Context, cardID, token, text string) error
	MoveCard(ctx context.Context, cardID, targetListID, token string) error
}

// AnalyzerAPI is the slice of pkg/analyzer.Analyzer the orchestrator
// depends on.
type AnalyzerAPI interface {
	AnalyzeBatch(ctx context.Context, cards []models.CardPayload) []analyzer.Result
}

const (
	defaultBatchSize        = 8
	defaultConcurrentBatches = 3
)

// Orchestrator runs analyzeList passes (spec.md §4.1).
type Orchestrator struct {
	board    BoardAPI
	analyzer AnalyzerAPI
	repos    *repository.Repositories
	log      hclog.Logger

	// BatchSize bounds how many cards are sent to the Analyzer per LLM
	// call (spec.md §6.3 ANALYSIS_BATCH_SIZE, default 8).
	BatchSize int
	// ConcurrentBatches bounds how many batches may be in flight at once
	// (spec.md §5: "recommended: 2-4 concurrent in-flight batches").
	ConcurrentBatches int
}

// New builds an Orchestrator.
func New(board BoardAPI, az AnalyzerAPI, repos *repository.Repositories, log hclog.Logger) *Orchestrator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Orchestrator{
		board:             board,
		analyzer:          az,
		repos:             repos,
		log:               log.Named("orchestrator"),
		BatchSize:         defaultBatchSize,
		ConcurrentBatches: defaultConcurrentBatches,
	}
}

func (o *Orchestrator) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return defaultBatchSize
}

func (o *Orchestrator) concurrentBatches() int {
	if o.ConcurrentBatches > 0 {
		return o.ConcurrentBatches
	}
	return defaultConcurrentBatches
}

// AnalyzeList runs one pass over a single list (spec.md §4.1). A non-nil
// Go error is reserved for unexpected internal faults; a board fetch
// failure is represented as ListAnalysisSummary.Error instead, so
// callers that only care about the board-visible contract never need to
// type-switch.
func (o *Orchestrator) AnalyzeList(ctx context.Context, params ListAnalysisParams) (*ListAnalysisSummary, error) {
	log := o.log.With("board_id", params.BoardID, "list_id", params.ListID)

	cards, err := o.board.GetListCards(ctx, params.ListID, params.Token)
	if err != nil {
		log.Warn("board fetch failed", "error", err)
		return &ListAnalysisSummary{Error: err.Error()}, nil
	}
	if len(cards) == 0 {
		return &ListAnalysisSummary{
			BoardAnalysis: BoardAnalysis{TotalCards: 0, AnalyzedAt: time.Now().UTC()},
		}, nil
	}

	activeConfig, err := o.repos.Config.ForBoard(ctx, params.BoardID)
	if err != nil {
		log.Warn("could not resolve active config for cache check, treating cache as cold", "error", err)
	}

	results := make([]CardResult, len(cards))
	var queue []queuedCard
	var cached []cachedResult

	for i, card := range cards {
		payload := models.NewCardPayload(card, params.ListName, params.BoardID, params.BoardName)

		ticket, getErr := o.repos.Ticket.GetByExternalID(ctx, card.ID)
		if getErr == nil && activeConfig != nil && cache.Valid(ticket, activeConfig) {
			latest, histErr := o.repos.History.Latest(ctx, ticket.ID)
			if histErr == nil {
				cached = append(cached, cachedResult{index: i, ticket: ticket, latest: latest})
				continue
			}
		} else if getErr != nil && !errors.Is(getErr, gorm.ErrRecordNotFound) {
			log.Warn("ticket lookup failed, treating card as uncached", "card_id", card.ID, "error", getErr)
		}

		queue = append(queue, queuedCard{index: i, card: card, payload: payload})
	}

	for _, c := range cached {
		results[c.index] = CardResult{
			CardID:        c.ticket.ExternalID,
			CardName:      stringMeta(c.ticket.Metadata, models.MetaName),
			Criticality:   string(c.latest.Criticality),
			Justification: c.latest.JustificationText(),
			Success:       true,
			FromCache:     true,
		}
	}

	analyzed := o.analyzeQueue(ctx, queue)

	targetListID, targetListName := "", ""
	if activeConfig != nil {
		if view, viewErr := models.DecodeConfigView(activeConfig.Data); viewErr == nil && view.HasTargetList() {
			targetListID, targetListName = view.TargetListID, view.TargetListName
		}
	}

	actioned := o.actOnCards(ctx, analyzed, params, targetListID, targetListName)
	for _, r := range actioned {
		results[r.index] = r.result
	}

	var saved []uint
	if params.BoardScopeID != nil {
		saved, err = o.persist(ctx, *params.BoardScopeID, params, activeConfig, actioned)
		if err != nil {
			log.Error("persistence phase failed, board actions already applied are retained", "error", err)
			return nil, fmt.Errorf("persist analysis run: %w", err)
		}
	}

	summary := buildSummary(results)
	summary.SavedTickets = saved
	summary.TicketsSavedCount = len(saved)
	return summary, nil
}

func stringMeta(meta models.JSONMap, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func buildSummary(results []CardResult) *ListAnalysisSummary {
	summary := &ListAnalysisSummary{CardsAnalysis: results, BoardAnalysis: BoardAnalysis{
		TotalCards: len(results),
		AnalyzedAt: time.Now().UTC(),
	}}

	successful := 0
	for _, r := range results {
		if !r.Success {
			continue
		}
		successful++
		switch r.Criticality {
		case string(models.CriticalityHigh):
			summary.BoardAnalysis.High++
		case string(models.CriticalityMedium):
			summary.BoardAnalysis.Medium++
		case string(models.CriticalityLow):
			summary.BoardAnalysis.Low++
		}
	}

	if len(results) > 0 {
		rate := float64(successful) / float64(len(results)) * 100
		summary.BoardAnalysis.SuccessRate = roundTo2(rate)
	}
	return summary
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
