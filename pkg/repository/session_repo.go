package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// SessionRepo creates and reads AnalysisSession rows (spec.md §4.5).
type SessionRepo struct {
	db *gorm.DB
}

// Create inserts a new AnalysisSession with reference stored as given.
// Callers build the reference with orchestrator.NewBulkReference or
// reanalysis.NewReference, since they own the "now" clock and format
// choice.
func (r *SessionRepo) Create(ctx context.Context, reference string, reanalyse bool) (*models.AnalysisSession, error) {
	session := &models.AnalysisSession{Reference: reference, Reanalyse: reanalyse}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create analysis session: %w", err)
	}
	return session, nil
}

func (r *SessionRepo) Get(ctx context.Context, id uint) (*models.AnalysisSession, error) {
	var session models.AnalysisSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// All returns every AnalysisSession row, used by the statistics service
// to resolve which History rows belong to a reanalysis session.
func (r *SessionRepo) All(ctx context.Context) ([]models.AnalysisSession, error) {
	var sessions []models.AnalysisSession
	if err := r.db.WithContext(ctx).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list all analysis sessions: %w", err)
	}
	return sessions, nil
}

// BoardScopeRepo manages BoardScope rows, the (session, platform) anchor
// for Ticket rows (spec.md §3).
type BoardScopeRepo struct {
	db *gorm.DB
}

func (r *BoardScopeRepo) Create(ctx context.Context, sessionID uint, platform string) (*models.BoardScope, error) {
	scope := &models.BoardScope{SessionID: sessionID, Platform: platform}
	if err := r.db.WithContext(ctx).Create(scope).Error; err != nil {
		return nil, fmt.Errorf("create board scope: %w", err)
	}
	return scope, nil
}

func (r *BoardScopeRepo) Get(ctx context.Context, id uint) (*models.BoardScope, error) {
	var scope models.BoardScope
	if err := r.db.WithContext(ctx).First(&scope, id).Error; err != nil {
		return nil, err
	}
	return &scope, nil
}

// All returns every BoardScope row, used by the edge's session-ticket-count
// join for GET /api/analyses.
func (r *BoardScopeRepo) All(ctx context.Context) ([]models.BoardScope, error) {
	var scopes []models.BoardScope
	if err := r.db.WithContext(ctx).Find(&scopes).Error; err != nil {
		return nil, fmt.Errorf("list all board scopes: %w", err)
	}
	return scopes, nil
}
