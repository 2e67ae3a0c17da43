package api

import (
	"net/http"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// decodeConfigBody reads a JSON object, normalizes every key to
// camelCase (spec.md §6.1: "accepts either snake_case or camelCase"),
// and projects it onto a ConfigView.
func decodeConfigBody(r *http.Request) (models.ConfigView, map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := decodeBodyLoose(r, &raw); err != nil {
		return models.ConfigView{}, nil, err
	}
	normalized := normalizeFields(raw)
	view, err := models.DecodeConfigView(models.JSONMap(normalized))
	if err != nil {
		return models.ConfigView{}, nil, apierror.Validation("invalid config payload: " + err.Error())
	}
	return view, normalized, nil
}

// handleCreateConfig implements POST
// /api/trello/config-board-subscription.
func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	view, _, err := decodeConfigBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.BoardID == "" || view.ListID == "" {
		writeError(w, apierror.Validation("boardId and listId are required"))
		return
	}

	cfg := &models.Config{Data: models.EncodeConfigView(view, nil)}
	if err := s.repos.Config.Create(r.Context(), cfg); err != nil {
		writeError(w, apierror.Persistence("create config failed", err))
		return
	}
	writeSuccess(w, envelope{"config": cfg})
}

// handleUpdateConfig implements PUT /api/trello/config-board-subscription
// (spec.md §6.1: "update Config (including targetListId/Name)").
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	view, normalized, err := decodeConfigBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, ok := idFromNormalized(normalized)
	if !ok {
		writeError(w, apierror.Validation("id is required"))
		return
	}

	cfg, err := s.repos.Config.Get(r.Context(), id)
	if err != nil {
		writeError(w, apierror.NotFound("config not found"))
		return
	}
	cfg.Data = models.EncodeConfigView(view, cfg.Data)
	if err := s.repos.Config.Update(r.Context(), cfg); err != nil {
		writeError(w, apierror.Persistence("update config failed", err))
		return
	}
	writeSuccess(w, envelope{"config": cfg})
}

// handleListConfigs implements GET /api/trello/config-board-subscription.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.repos.Config.List(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("list configs failed", err))
		return
	}
	writeSuccess(w, envelope{"configs": configs})
}

// handleSetTargetList implements POST
// /api/trello/config-board-subscription/{id}/target-list.
func (s *Server) handleSetTargetList(w http.ResponseWriter, r *http.Request) {
	view, _, err := decodeConfigBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.TargetListID == "" {
		writeError(w, apierror.Validation("targetListId is required"))
		return
	}

	id, ok := idFromPath(r.PathValue("id"))
	if !ok {
		writeError(w, apierror.Validation("invalid config id"))
		return
	}
	cfg, err := s.repos.Config.Get(r.Context(), id)
	if err != nil {
		writeError(w, apierror.NotFound("config not found"))
		return
	}

	existing, err := models.DecodeConfigView(cfg.Data)
	if err != nil {
		writeError(w, apierror.Internal("decode existing config failed", err))
		return
	}
	existing.TargetListID = view.TargetListID
	existing.TargetListName = view.TargetListName
	cfg.Data = models.EncodeConfigView(existing, cfg.Data)

	if err := s.repos.Config.Update(r.Context(), cfg); err != nil {
		writeError(w, apierror.Persistence("update config target list failed", err))
		return
	}
	writeSuccess(w, envelope{"config": cfg})
}
