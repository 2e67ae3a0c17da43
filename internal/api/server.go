// Package api implements the thin HTTP edge of spec.md §6.1: request
// parsing, validation, and translation into calls against the
// orchestrator/analyzer/reanalysis/statistics/cache/grounding
// collaborators, with every response wrapped in the
// {status:"success"|"error", ...} envelope.
package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/board"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/cache"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/orchestrator"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/reanalysis"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/statistics"
)

// Server wires together the collaborators behind every spec.md §6.1
// route. It holds no state of its own beyond the services it delegates
// to.
type Server struct {
	repos        *repository.Repositories
	orchestrator *orchestrator.Orchestrator
	analyzer     *analyzer.Analyzer
	board        *board.Client
	reanalysis   *reanalysis.Service
	statistics   *statistics.Service
	cache        *cache.Service
	grounding    *grounding.Store
	log          hclog.Logger
}

// Deps bundles every collaborator the edge needs.
type Deps struct {
	Repos        *repository.Repositories
	Orchestrator *orchestrator.Orchestrator
	Analyzer     *analyzer.Analyzer
	Board        *board.Client
	Reanalysis   *reanalysis.Service
	Statistics   *statistics.Service
	Cache        *cache.Service
	Grounding    *grounding.Store
	Logger       hclog.Logger
}

// NewServer builds a Server from its collaborators.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Server{
		repos:        d.Repos,
		orchestrator: d.Orchestrator,
		analyzer:     d.Analyzer,
		board:        d.Board,
		reanalysis:   d.Reanalysis,
		statistics:   d.Statistics,
		cache:        d.Cache,
		grounding:    d.Grounding,
		log:          log.Named("api"),
	}
}

// Handler builds the *http.ServeMux carrying every spec.md §6.1 route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/trello/board/{boardId}/list/{listId}/analyze", s.handleAnalyzeList)
	mux.HandleFunc("POST /api/trello/card/{cardId}/add-label", s.handleAddLabel)
	mux.HandleFunc("POST /api/trello/card/{cardId}/add-comment", s.handleAddComment)
	mux.HandleFunc("PUT /api/trello/card/{cardId}/move", s.handleMoveCard)
	mux.HandleFunc("POST /api/trello/card/{cardId}/analyze", s.handleAnalyzeCard)

	mux.HandleFunc("POST /api/trello/config-board-subscription", s.handleCreateConfig)
	mux.HandleFunc("PUT /api/trello/config-board-subscription", s.handleUpdateConfig)
	mux.HandleFunc("GET /api/trello/config-board-subscription", s.handleListConfigs)
	mux.HandleFunc("POST /api/trello/config-board-subscription/{id}/target-list", s.handleSetTargetList)

	mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /api/tickets", s.handleListTickets)
	mux.HandleFunc("POST /api/tickets/{externalId}/reanalyze", s.handleReanalyze)
	mux.HandleFunc("GET /api/tickets/{externalId}/analysis/history", s.handleTicketHistory)

	mux.HandleFunc("GET /api/analysis/statistics", s.handleStatistics)
	mux.HandleFunc("POST /api/analysis/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /api/analysis/cache/status", s.handleCacheStatus)

	mux.HandleFunc("POST /fileapi/upload", s.handleUpload)

	return mux
}
