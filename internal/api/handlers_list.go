package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// paginationParams parses the page/perPage query parameters shared by
// the listing endpoints (spec.md §6.1: "perPage ∈ {5,10,15}").
type paginationParams struct {
	Page    int
	PerPage int
}

func parsePagination(r *http.Request) paginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	switch perPage {
	case 5, 10, 15:
	default:
		perPage = 10
	}
	return paginationParams{Page: page, PerPage: perPage}
}

func (p paginationParams) slice(n int) (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > n {
		start = n
	}
	end = start + p.PerPage
	if end > n {
		end = n
	}
	return start, end
}

// analysisSessionView is one row of GET /api/analyses: a session plus its
// ticket count, computed by joining BoardScope (session -> scope) against
// Ticket (scope -> ticket) in memory.
type analysisSessionView struct {
	models.AnalysisSession
	TicketsCount int `json:"tickets_count"`
}

// handleListAnalyses implements GET
// /api/analyses?page&perPage&filters[]&orderBy&orderDirection.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.repos.Session.All(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("list sessions failed", err))
		return
	}
	scopes, err := s.repos.BoardScope.All(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("list board scopes failed", err))
		return
	}
	tickets, err := s.repos.Ticket.All(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("list tickets failed", err))
		return
	}

	scopeSession := make(map[uint]uint, len(scopes))
	for _, sc := range scopes {
		scopeSession[sc.ID] = sc.SessionID
	}
	ticketCounts := make(map[uint]int, len(sessions))
	for _, t := range tickets {
		ticketCounts[scopeSession[t.BoardScopeID]]++
	}

	views := make([]analysisSessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, analysisSessionView{AnalysisSession: sess, TicketsCount: ticketCounts[sess.ID]})
	}

	views = applyAnalysisFilters(views, r.URL.Query()["filters[]"])
	orderBy := r.URL.Query().Get("orderBy")
	orderDirection := r.URL.Query().Get("orderDirection")
	sortAnalyses(views, orderBy, orderDirection)

	pg := parsePagination(r)
	start, end := pg.slice(len(views))

	writeSuccess(w, envelope{
		"analyses":  views[start:end],
		"total":     len(views),
		"page":      pg.Page,
		"perPage":   pg.PerPage,
	})
}

// applyAnalysisFilters applies "field:op:value" filters on createdAt or
// tickets_count (spec.md §6.1).
func applyAnalysisFilters(views []analysisSessionView, filters []string) []analysisSessionView {
	out := views
	for _, f := range filters {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) != 3 {
			continue
		}
		field, op, value := parts[0], parts[1], parts[2]
		out = filterByField(out, field, op, value)
	}
	return out
}

func filterByField(views []analysisSessionView, field, op, value string) []analysisSessionView {
	var filtered []analysisSessionView
	for _, v := range views {
		var cmp int
		switch field {
		case "tickets_count":
			n, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			cmp = v.TicketsCount - n
		case "createdAt":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				continue
			}
			cmp = v.CreatedAt.Compare(t)
		default:
			continue
		}
		if matchesOp(cmp, op) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func matchesOp(cmp int, op string) bool {
	switch op {
	case "gt":
		return cmp > 0
	case "gte":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "lte":
		return cmp <= 0
	case "eq":
		return cmp == 0
	default:
		return false
	}
}

func sortAnalyses(views []analysisSessionView, orderBy, direction string) {
	if orderBy != "createdAt" && orderBy != "tickets_count" {
		orderBy = "createdAt"
	}
	asc := direction == "asc"
	sort.SliceStable(views, func(i, j int) bool {
		var less bool
		if orderBy == "tickets_count" {
			less = views[i].TicketsCount < views[j].TicketsCount
		} else {
			less = views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		if asc {
			return less
		}
		if orderBy == "tickets_count" {
			return views[i].TicketsCount > views[j].TicketsCount
		}
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
}

// handleListTickets implements GET /api/tickets?analyse_id=... (spec.md
// §6.1), filtering on criticality_level:eq:{high|medium|low} and
// name:contains:{s}.
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.repos.Ticket.All(r.Context())
	if err != nil {
		writeError(w, apierror.Internal("list tickets failed", err))
		return
	}

	analyseID := r.URL.Query().Get("analyse_id")
	var scopeIDs map[uint]bool
	if analyseID != "" {
		sessionID, ok := idFromPath(analyseID)
		if !ok {
			writeError(w, apierror.Validation("invalid analyse_id"))
			return
		}
		scopes, err := s.repos.BoardScope.All(r.Context())
		if err != nil {
			writeError(w, apierror.Internal("list board scopes failed", err))
			return
		}
		scopeIDs = map[uint]bool{}
		for _, sc := range scopes {
			if sc.SessionID == sessionID {
				scopeIDs[sc.ID] = true
			}
		}
	}

	type ticketView struct {
		models.Ticket
		Criticality string `json:"criticality_level,omitempty"`
	}

	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		if scopeIDs != nil && !scopeIDs[t.BoardScopeID] {
			continue
		}
		latest, err := s.repos.History.Latest(r.Context(), t.ID)
		criticality := ""
		if err == nil {
			criticality = string(latest.Criticality)
		}
		views = append(views, ticketView{Ticket: t, Criticality: criticality})
	}

	for _, f := range r.URL.Query()["filters[]"] {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) != 3 {
			continue
		}
		field, op, value := parts[0], parts[1], parts[2]
		filtered := views[:0:0]
		for _, v := range views {
			switch {
			case field == "criticality_level" && op == "eq":
				if v.Criticality == strings.ToLower(value) {
					filtered = append(filtered, v)
				}
			case field == "name" && op == "contains":
				if strings.Contains(strings.ToLower(stringMeta(v.Metadata, models.MetaName)), strings.ToLower(value)) {
					filtered = append(filtered, v)
				}
			}
		}
		views = filtered
	}

	pg := parsePagination(r)
	start, end := pg.slice(len(views))
	writeSuccess(w, envelope{
		"tickets": views[start:end],
		"total":   len(views),
		"page":    pg.Page,
		"perPage": pg.PerPage,
	})
}

func stringMeta(meta models.JSONMap, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
