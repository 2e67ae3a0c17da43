// Package cache implements the cache validity check (spec.md §4.1 "Cache
// validity rule") and the forced-invalidation/status endpoints behind
// POST /api/analysis/cache/clear and GET /api/analysis/cache/status
// (spec.md §6.1).
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// Status is the payload for GET /api/analysis/cache/status.
type Status struct {
	CachedCount   int     `json:"cached_count"`
	UncachedCount int     `json:"uncached_count"`
	TotalTickets  int     `json:"total_tickets"`
	CacheRatio    float64 `json:"cache_ratio"`
}

// ClearResult is the payload returned from Clear.
type ClearResult struct {
	ClearedCount int `json:"cleared_count"`
}

// Service implements the cache validity check and the clear/status
// endpoints.
type Service struct {
	repos *repository.Repositories
	log   hclog.Logger
}

// New builds a Service.
func New(repos *repository.Repositories, log hclog.Logger) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{repos: repos, log: log.Named("cache")}
}

// Valid implements the cache validity rule of spec.md §4.1: a prior
// History is reusable iff the serialized Config payload currently in
// force for the ticket's board equals the last_analysis_config snapshot
// stored on the Ticket's metadata (deep, key-sorted equality).
func Valid(ticket *models.Ticket, activeConfig *models.Config) bool {
	if ticket == nil || activeConfig == nil {
		return false
	}
	raw, ok := ticket.Metadata[models.MetaLastAnalysisConfig]
	if !ok {
		return false
	}
	snapshot, ok := raw.(map[string]interface{})
	if !ok {
		return false
	}
	return models.JSONMap(snapshot).Equal(activeConfig.Data)
}

// Clear forces re-evaluation of one ticket (if ticketID is non-nil) or
// every ticket (spec.md §6.1: "POST /api/analysis/cache/clear — body
// {ticket_id?}; if omitted, clears all"), by deleting the
// last_analysis_config snapshot from the affected Ticket(s)' metadata.
func (s *Service) Clear(ctx context.Context, ticketID *uint) (*ClearResult, error) {
	if ticketID != nil {
		ticket, err := s.repos.Ticket.Get(ctx, *ticketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ClearResult{}, nil
			}
			return nil, fmt.Errorf("load ticket %d: %w", *ticketID, err)
		}
		if cleared := clearSnapshot(ticket); cleared {
			if err := s.repos.Ticket.UpdateMetadata(ctx, ticket); err != nil {
				return nil, fmt.Errorf("clear cache for ticket %d: %w", *ticketID, err)
			}
			return &ClearResult{ClearedCount: 1}, nil
		}
		return &ClearResult{}, nil
	}

	tickets, err := s.repos.Ticket.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets for cache clear: %w", err)
	}

	cleared := 0
	for i := range tickets {
		ticket := &tickets[i]
		if !clearSnapshot(ticket) {
			continue
		}
		if err := s.repos.Ticket.UpdateMetadata(ctx, ticket); err != nil {
			return nil, fmt.Errorf("clear cache for ticket %d: %w", ticket.ID, err)
		}
		cleared++
	}
	s.log.Info("cleared analysis cache", "cleared_count", cleared)
	return &ClearResult{ClearedCount: cleared}, nil
}

// Status reports cached/uncached ticket counts and their ratio, where a
// ticket counts as cached iff it currently carries a
// last_analysis_config snapshot (spec.md §6.1).
func (s *Service) Status(ctx context.Context) (*Status, error) {
	tickets, err := s.repos.Ticket.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets for cache status: %w", err)
	}

	status := &Status{TotalTickets: len(tickets)}
	for _, ticket := range tickets {
		if _, ok := ticket.Metadata[models.MetaLastAnalysisConfig]; ok {
			status.CachedCount++
		} else {
			status.UncachedCount++
		}
	}
	if status.TotalTickets > 0 {
		status.CacheRatio = roundTo2(float64(status.CachedCount) / float64(status.TotalTickets) * 100)
	}
	return status, nil
}

func clearSnapshot(ticket *models.Ticket) bool {
	if _, ok := ticket.Metadata[models.MetaLastAnalysisConfig]; !ok {
		return false
	}
	delete(ticket.Metadata, models.MetaLastAnalysisConfig)
	return true
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
