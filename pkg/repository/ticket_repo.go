package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// TicketRepo enforces ExternalID uniqueness (spec.md §8 invariant 1) and
// never updates metadata on reuse except through the explicit methods
// below (spec.md §4.5).
type TicketRepo struct {
	db *gorm.DB
}

// EnsureTicket returns the existing Ticket for card.ID if one exists,
// otherwise inserts a new row anchored at boardScopeID. Re-observing an
// already-tracked card never creates a new row and never mutates its
// stored metadata (spec.md §4.5, §4.8: BoardScopeID is "set at first
// observation and frozen" per the Open Questions resolution in
// DESIGN.md).
func (r *TicketRepo) EnsureTicket(
	ctx context.Context,
	boardScopeID uint,
	card models.Card,
	boardName, listName, boardID, listID string,
) (*models.Ticket, bool, error) {
	existing, err := r.GetByExternalID(ctx, card.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup ticket %s: %w", card.ID, err)
	}

	labels := make([]interface{}, len(card.Labels))
	for i, l := range card.Labels {
		labels[i] = map[string]interface{}{"id": l.ID, "name": l.Name, "color": l.Color}
	}
	members := make([]interface{}, len(card.Members))
	for i, m := range card.Members {
		members[i] = map[string]interface{}{"id": m.ID, "fullName": m.FullName}
	}

	ticket := &models.Ticket{
		ExternalID:   card.ID,
		BoardScopeID: boardScopeID,
		BoardName:    boardName,
		Metadata: models.JSONMap{
			models.MetaName:      card.Name,
			models.MetaDesc:      card.Desc,
			models.MetaDue:       card.Due,
			models.MetaURL:       card.URL,
			models.MetaLabels:    labels,
			models.MetaMembers:   members,
			models.MetaBoardID:   boardID,
			models.MetaBoardName: boardName,
			models.MetaListID:    listID,
			models.MetaListName:  listName,
		},
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		// A concurrent run may have inserted the same ExternalID between
		// our lookup and this insert; treat that race as "already exists"
		// rather than surfacing a uniqueness violation (spec.md §5:
		// "Two concurrent runs on the same listId are racy on board state
		// but safe on persistence thanks to externalId uniqueness").
		if existing, getErr := r.GetByExternalID(ctx, card.ID); getErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create ticket %s: %w", card.ID, err)
	}
	return ticket, true, nil
}

func (r *TicketRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepo) Get(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// All returns every Ticket row, used by the statistics service's
// per-board breakdown.
func (r *TicketRepo) All(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.db.WithContext(ctx).Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("list all tickets: %w", err)
	}
	return tickets, nil
}

// Count reports the total number of Ticket rows.
func (r *TicketRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Ticket{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

// UpdateMetadata persists ticket.Metadata as-is. Callers use this for the
// narrow, explicit mutations spec.md §4.5 allows: list moves, the
// last_analysis_config cache snapshot, and the soft analysis_result
// cache update performed by the reanalysis service.
func (r *TicketRepo) UpdateMetadata(ctx context.Context, ticket *models.Ticket) error {
	if err := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", ticket.ID).
		Update("metadata", ticket.Metadata).Error; err != nil {
		return fmt.Errorf("update ticket metadata %d: %w", ticket.ID, err)
	}
	return nil
}
