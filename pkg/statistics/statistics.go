// Package statistics computes read-only aggregations over the analysis
// history (spec.md §4.7). It performs no writes and has no side effects.
package statistics

import (
	"context"
	"fmt"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// CriticalityDistribution counts History rows per criticality level.
type CriticalityDistribution struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
}

// BoardBreakdown is the same total/reanalysis split as Summary, scoped
// to one board (spec.md §4.7: "per-board breakdown with the same split").
type BoardBreakdown struct {
	BoardName       string                  `json:"board_name"`
	TotalAnalyses   int64                   `json:"total_analyses"`
	InitialAnalyses int64                   `json:"initial_analyses"`
	Reanalyses      int64                   `json:"reanalyses"`
	Distribution    CriticalityDistribution `json:"criticality_distribution"`
}

// Summary is the full statistics payload (spec.md §4.7).
type Summary struct {
	TotalAnalyses   int64                     `json:"total_analyses"`
	TotalTickets    int64                     `json:"total_tickets"`
	Reanalyses      int64                     `json:"reanalyses"`
	InitialAnalyses int64                     `json:"initial_analyses"`
	ReanalysisRate  float64                   `json:"reanalysis_rate"`
	Distribution    CriticalityDistribution   `json:"criticality_distribution"`
	PerBoard        map[string]BoardBreakdown `json:"per_board"`
}

// Service computes Summary over the Repositories' History/Ticket/Session
// rows.
type Service struct {
	repos *repository.Repositories
}

// New builds a Service.
func New(repos *repository.Repositories) *Service {
	return &Service{repos: repos}
}

// Compute runs the full aggregation (spec.md §4.7). Pure read, no side
// effects.
func (s *Service) Compute(ctx context.Context) (*Summary, error) {
	histories, err := s.repos.History.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history for statistics: %w", err)
	}
	tickets, err := s.repos.Ticket.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickets for statistics: %w", err)
	}
	sessions, err := s.repos.Session.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions for statistics: %w", err)
	}

	reanalyseSessions := make(map[uint]bool, len(sessions))
	for _, sess := range sessions {
		if sess.Reanalyse {
			reanalyseSessions[sess.ID] = true
		}
	}

	ticketBoard := make(map[uint]string, len(tickets))
	for _, t := range tickets {
		ticketBoard[t.ID] = t.BoardName
	}

	summary := &Summary{
		TotalAnalyses: int64(len(histories)),
		TotalTickets:  int64(len(tickets)),
		PerBoard:      map[string]BoardBreakdown{},
	}

	for _, h := range histories {
		isReanalysis := reanalyseSessions[h.SessionID]
		if isReanalysis {
			summary.Reanalyses++
		}
		addToDistribution(&summary.Distribution, h.Criticality)

		boardName := ticketBoard[h.TicketID]
		breakdown := summary.PerBoard[boardName]
		breakdown.BoardName = boardName
		breakdown.TotalAnalyses++
		if isReanalysis {
			breakdown.Reanalyses++
		} else {
			breakdown.InitialAnalyses++
		}
		addToDistribution(&breakdown.Distribution, h.Criticality)
		summary.PerBoard[boardName] = breakdown
	}

	summary.InitialAnalyses = summary.TotalAnalyses - summary.Reanalyses
	if summary.TotalAnalyses > 0 {
		summary.ReanalysisRate = roundTo2(float64(summary.Reanalyses) / float64(summary.TotalAnalyses) * 100)
	}

	return summary, nil
}

func addToDistribution(d *CriticalityDistribution, criticality models.Criticality) {
	switch criticality {
	case models.CriticalityHigh:
		d.High++
	case models.CriticalityMedium:
		d.Medium++
	case models.CriticalityLow:
		d.Low++
	}
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
