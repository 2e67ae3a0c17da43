// Package scheduler implements the in-process bulk-analysis loop spec.md
// §9 demands in place of the original's self-HTTP "background" script:
// it iterates every Config row, creates the Session + BoardScope the
// Orchestrator requires, and calls Orchestrator.AnalyzeList directly —
// no HTTP round trip to its own edge.
//
// Grounded on original_source/agent_analyse.py's process_all_configurations:
// one global AnalysisSession shared across every Config, one BoardScope
// created per valid Config, configs missing a token/boardId/listId are
// skipped and reported rather than aborting the run.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/orchestrator"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// OrchestratorAPI is the slice of pkg/orchestrator.Orchestrator the
// scheduler depends on, narrowed to an interface so tests can
// substitute a fake.
type OrchestratorAPI interface {
	AnalyzeList(ctx context.Context, params orchestrator.ListAnalysisParams) (*orchestrator.ListAnalysisSummary, error)
}

// BoardRunResult is the outcome of running one Config's target list
// through the Orchestrator.
type BoardRunResult struct {
	ConfigID uint   `json:"config_id"`
	BoardID  string `json:"board_id"`
	ListID   string `json:"list_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`

	Summary *orchestrator.ListAnalysisSummary `json:"board_analysis,omitempty"`
}

// RunResult is the outcome of one RunAll pass: the shared Session plus
// one BoardRunResult per Config row.
type RunResult struct {
	SessionID uint             `json:"session_id"`
	Reference string           `json:"reference"`
	BoardRuns []BoardRunResult `json:"board_runs"`
}

// Service runs the bulk-analysis loop.
type Service struct {
	orchestrator OrchestratorAPI
	repos        *repository.Repositories
	log          hclog.Logger

	// Now returns the reference clock; overridable in tests.
	Now func() time.Time
}

// New builds a Service.
func New(orch OrchestratorAPI, repos *repository.Repositories, log hclog.Logger) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{orchestrator: orch, repos: repos, log: log.Named("scheduler"), Now: time.Now}
}

// RunAll creates one bulk AnalysisSession and, for every Config row with
// a token/boardId/listId, a BoardScope anchored to it, then calls
// Orchestrator.AnalyzeList for that board/list (spec.md §4.1's stated
// precondition: "Caller has already created the Session + BoardScope").
// A Config missing required fields is skipped and reported with an
// error entry instead of aborting the run, matching the original's
// "Configuration incomplète" handling.
func (s *Service) RunAll(ctx context.Context) (*RunResult, error) {
	configs, err := s.repos.Config.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	reference := orchestrator.NewBulkReference(s.Now())
	session, err := s.repos.Session.Create(ctx, reference, false)
	if err != nil {
		return nil, fmt.Errorf("create bulk session: %w", err)
	}
	log := s.log.With("session_id", session.ID, "reference", reference)
	log.Info("bulk run started", "configs", len(configs))

	result := &RunResult{SessionID: session.ID, Reference: session.Reference}

	for _, cfg := range configs {
		view, err := models.DecodeConfigView(cfg.Data)
		if err != nil {
			result.BoardRuns = append(result.BoardRuns, BoardRunResult{
				ConfigID: cfg.ID,
				Success:  false,
				Error:    fmt.Sprintf("decode config: %v", err),
			})
			continue
		}
		if view.Token == "" || view.BoardID == "" || view.ListID == "" {
			log.Warn("skipping incomplete config", "config_id", cfg.ID)
			result.BoardRuns = append(result.BoardRuns, BoardRunResult{
				ConfigID: cfg.ID,
				BoardID:  view.BoardID,
				ListID:   view.ListID,
				Success:  false,
				Error:    "incomplete configuration: token, boardId, and listId are required",
			})
			continue
		}

		scope, err := s.repos.BoardScope.Create(ctx, session.ID, "trello")
		if err != nil {
			result.BoardRuns = append(result.BoardRuns, BoardRunResult{
				ConfigID: cfg.ID,
				BoardID:  view.BoardID,
				ListID:   view.ListID,
				Success:  false,
				Error:    fmt.Sprintf("create board scope: %v", err),
			})
			continue
		}

		summary, err := s.orchestrator.AnalyzeList(ctx, orchestrator.ListAnalysisParams{
			BoardID:      view.BoardID,
			ListID:       view.ListID,
			BoardName:    view.BoardName,
			ListName:     view.ListName,
			Token:        view.Token,
			BoardScopeID: &scope.ID,
		})
		if err != nil {
			log.Error("board run failed", "config_id", cfg.ID, "error", err)
			result.BoardRuns = append(result.BoardRuns, BoardRunResult{
				ConfigID: cfg.ID,
				BoardID:  view.BoardID,
				ListID:   view.ListID,
				Success:  false,
				Error:    err.Error(),
			})
			continue
		}

		result.BoardRuns = append(result.BoardRuns, BoardRunResult{
			ConfigID: cfg.ID,
			BoardID:  view.BoardID,
			ListID:   view.ListID,
			Success:  true,
			Summary:  summary,
		})
	}

	log.Info("bulk run finished", "boards_run", len(result.BoardRuns))
	return result, nil
}
