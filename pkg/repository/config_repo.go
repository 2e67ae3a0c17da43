package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// ConfigRepo persists Config rows (spec.md §3: "created by the edge;
// updated in place; never deleted by the core").
type ConfigRepo struct {
	db *gorm.DB
}

func (r *ConfigRepo) Create(ctx context.Context, cfg *models.Config) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	return nil
}

func (r *ConfigRepo) Update(ctx context.Context, cfg *models.Config) error {
	if err := r.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	return nil
}

func (r *ConfigRepo) Get(ctx context.Context, id uint) (*models.Config, error) {
	var cfg models.Config
	if err := r.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigRepo) List(ctx context.Context) ([]models.Config, error) {
	var cfgs []models.Config
	if err := r.db.WithContext(ctx).Order("id").Find(&cfgs).Error; err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return cfgs, nil
}

// ForBoard returns the most recently updated Config whose Data.boardId
// matches boardID. Used by the orchestrator to resolve the active target
// list for a board (spec.md §4.1 step 4).
func (r *ConfigRepo) ForBoard(ctx context.Context, boardID string) (*models.Config, error) {
	cfgs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var best *models.Config
	for i := range cfgs {
		view, err := models.DecodeConfigView(cfgs[i].Data)
		if err != nil {
			continue
		}
		if view.BoardID != boardID {
			continue
		}
		if best == nil || cfgs[i].UpdatedAt.After(best.UpdatedAt) {
			c := cfgs[i]
			best = &c
		}
	}
	return best, nil
}
