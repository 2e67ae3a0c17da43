package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"gorm.io/gorm"
)

// HistoryRepo is insert-only (spec.md §3, §8 invariant 2: "No test may
// observe an update/delete of a History row").
type HistoryRepo struct {
	db *gorm.DB
}

// Append inserts one AnalysisHistory row, normalizing criticality to
// lowercase storage form (spec.md §4.5).
func (r *HistoryRepo) Append(ctx context.Context, ticketID, sessionID uint, criticality models.Criticality, justification string) (*models.AnalysisHistory, error) {
	entry := &models.AnalysisHistory{
		TicketID:      ticketID,
		SessionID:     sessionID,
		Criticality:   criticality,
		Justification: models.NewJustification(justification),
		AnalyzedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("append history for ticket %d: %w", ticketID, err)
	}
	return entry, nil
}

// Latest returns the most recent History row for ticketID, which defines
// the ticket's current criticality (spec.md §8 invariant 3).
func (r *HistoryRepo) Latest(ctx context.Context, ticketID uint) (*models.AnalysisHistory, error) {
	var entry models.AnalysisHistory
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("analyzed_at DESC, id DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ForTicket returns all History rows for ticketID, oldest first.
func (r *HistoryRepo) ForTicket(ctx context.Context, ticketID uint) ([]models.AnalysisHistory, error) {
	var entries []models.AnalysisHistory
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("analyzed_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list history for ticket %d: %w", ticketID, err)
	}
	return entries, nil
}

// All returns every History row, used by the statistics service.
func (r *HistoryRepo) All(ctx context.Context) ([]models.AnalysisHistory, error) {
	var entries []models.AnalysisHistory
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list all history: %w", err)
	}
	return entries, nil
}

// CountForTicket reports how many History rows exist for ticketID.
func (r *HistoryRepo) CountForTicket(ctx context.Context, ticketID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AnalysisHistory{}).
		Where("ticket_id = ?", ticketID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
