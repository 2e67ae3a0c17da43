package api

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/orchestrator"
)

type analyzeListRequest struct {
	Token          string `json:"token"`
	BoardName      string `json:"board_name"`
	ListName       string `json:"list_name"`
	AnalyseBoardID *uint  `json:"analyse_board_id"`
}

func (r analyzeListRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// handleAnalyzeList implements POST
// /api/trello/board/{boardId}/list/{listId}/analyze (spec.md §4.1).
func (s *Server) handleAnalyzeList(w http.ResponseWriter, r *http.Request) {
	var req analyzeListRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}

	params := orchestrator.ListAnalysisParams{
		BoardID:      r.PathValue("boardId"),
		ListID:       r.PathValue("listId"),
		BoardName:    req.BoardName,
		ListName:     req.ListName,
		Token:        req.Token,
		BoardScopeID: req.AnalyseBoardID,
	}

	summary, err := s.orchestrator.AnalyzeList(r.Context(), params)
	if err != nil {
		writeError(w, apierror.Internal("analyze list failed", err))
		return
	}
	writeSuccess(w, envelope{"summary": summary})
}

type addLabelRequest struct {
	BoardID          string `json:"board_id"`
	Token            string `json:"token"`
	CriticalityLevel string `json:"criticality_level"`
}

func (r addLabelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BoardID, validation.Required),
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.CriticalityLevel, validation.Required,
			validation.In("HIGH", "MEDIUM", "LOW", "high", "medium", "low")),
	)
}

// handleAddLabel implements POST /api/trello/card/{cardId}/add-label. This
// manual single-card endpoint has no board fetch of its own to read the
// card's current labels from, so it sources them from the Ticket's
// persisted metadata instead of issuing an extra board call (a Ticket
// exists once any prior analysis run has touched cardID; before that,
// existingLabels is empty, which is a safe no-op for AddLabel).
func (s *Server) handleAddLabel(w http.ResponseWriter, r *http.Request) {
	var req addLabelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}
	criticality, ok := models.ParseCriticality(req.CriticalityLevel)
	if !ok {
		writeError(w, apierror.Validation("unrecognized criticality_level"))
		return
	}

	cardID := r.PathValue("cardId")
	var existingLabels []models.Label
	if ticket, err := s.repos.Ticket.GetByExternalID(r.Context(), cardID); err == nil {
		existingLabels = models.LabelsFromMetadata(ticket.Metadata)
	}
	if err := s.board.AddLabel(r.Context(), cardID, req.BoardID, req.Token, criticality, existingLabels); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{"card_id": cardID, "criticality_level": string(criticality)})
}

type addCommentRequest struct {
	Token   string `json:"token"`
	Comment string `json:"comment"`
}

func (r addCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Comment, validation.Required),
	)
}

// handleAddComment implements POST /api/trello/card/{cardId}/add-comment.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}

	cardID := r.PathValue("cardId")
	if err := s.board.AddComment(r.Context(), cardID, req.Token, req.Comment); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{"card_id": cardID})
}

type moveCardRequest struct {
	Token     string `json:"token"`
	NewListID string `json:"new_list_id"`
}

func (r moveCardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewListID, validation.Required),
	)
}

// handleMoveCard implements PUT /api/trello/card/{cardId}/move.
func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	var req moveCardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}

	cardID := r.PathValue("cardId")
	if err := s.board.MoveCard(r.Context(), cardID, req.NewListID, req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{"card_id": cardID, "list_id": req.NewListID})
}

// handleAnalyzeCard implements POST /api/trello/card/{cardId}/analyze, an
// ad-hoc single-card analysis with no persistence (spec.md §6.1).
func (s *Server) handleAnalyzeCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string `json:"token"`
		Name      string `json:"name"`
		Desc      string `json:"desc"`
		Due       string `json:"due"`
		ListName  string `json:"list_name"`
		BoardID   string `json:"board_id"`
		BoardName string `json:"board_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payload := models.NewCardPayload(models.Card{
		ID:   r.PathValue("cardId"),
		Name: req.Name,
		Desc: req.Desc,
		Due:  req.Due,
	}, req.ListName, req.BoardID, req.BoardName)

	result := s.analyzer.AnalyzeOne(r.Context(), payload)
	writeSuccess(w, envelope{
		"card_id":           result.CardID,
		"criticality_level": string(result.Level),
		"justification":     result.Justification,
		"success":           result.Success,
		"error":             result.Error,
	})
}

// handleReanalyze implements POST /api/tickets/{externalId}/reanalyze
// (spec.md §4.6).
func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	result, err := s.reanalysis.Reanalyze(r.Context(), r.PathValue("externalId"))
	if err != nil {
		writeError(w, apierror.Internal("reanalysis failed", err))
		return
	}
	if result.Error != "" {
		writeError(w, apierror.NotFound(result.Error))
		return
	}
	writeSuccess(w, envelope{"result": result})
}

// handleTicketHistory implements GET
// /api/tickets/{externalId}/analysis/history (spec.md §6.1: "full history
// list, newest first").
func (s *Server) handleTicketHistory(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalId")
	ticket, err := s.repos.Ticket.GetByExternalID(r.Context(), externalID)
	if err != nil {
		writeError(w, apierror.NotFound("ticket not found"))
		return
	}
	history, err := s.repos.History.ForTicket(r.Context(), ticket.ID)
	if err != nil {
		writeError(w, apierror.Internal("load history failed", err))
		return
	}
	// ForTicket returns oldest-first; reverse to satisfy "newest first".
	reversed := make([]models.AnalysisHistory, len(history))
	for i, h := range history {
		reversed[len(history)-1-i] = h
	}
	writeSuccess(w, envelope{"history": reversed})
}

// handleStatistics implements GET /api/analysis/statistics (spec.md §4.7).
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.statistics.Compute(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("compute statistics failed", err))
		return
	}
	writeSuccess(w, envelope{"statistics": summary})
}

type cacheClearRequest struct {
	TicketID *uint `json:"ticket_id"`
}

// handleCacheClear implements POST /api/analysis/cache/clear.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req cacheClearRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	result, err := s.cache.Clear(r.Context(), req.TicketID)
	if err != nil {
		writeError(w, apierror.Internal("cache clear failed", err))
		return
	}
	writeSuccess(w, envelope{"cleared_count": result.ClearedCount})
}

// handleCacheStatus implements GET /api/analysis/cache/status.
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.cache.Status(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("cache status failed", err))
		return
	}
	writeSuccess(w, envelope{"status": status})
}
