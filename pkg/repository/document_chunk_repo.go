package repository

import (
	"context"
	"fmt"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"gorm.io/gorm"
)

// DocumentChunkRepo persists the grounding store's chunks (spec.md §4.4).
type DocumentChunkRepo struct {
	db *gorm.DB
}

func (r *DocumentChunkRepo) Create(ctx context.Context, chunk *models.DocumentChunk) error {
	if err := r.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("create document chunk for %s: %w", chunk.Filename, err)
	}
	return nil
}

// FindByFilename returns every chunk ever ingested under filename,
// across all document IDs, so duplicate-detection can compare content
// hashes without assuming only one document ever used that name.
func (r *DocumentChunkRepo) FindByFilename(ctx context.Context, filename string) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	if err := r.db.WithContext(ctx).
		Where("filename = ?", filename).
		Order("document_id, chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("find document chunks for %s: %w", filename, err)
	}
	return chunks, nil
}

// ByDocumentID returns chunks for one document, ordered for reassembly.
func (r *DocumentChunkRepo) ByDocumentID(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("find document chunks for document %s: %w", documentID, err)
	}
	return chunks, nil
}

// All returns every chunk, ordered for deterministic grouped reassembly
// (grounding.Store.ReadContext).
func (r *DocumentChunkRepo) All(ctx context.Context) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	if err := r.db.WithContext(ctx).
		Order("document_id, chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list all document chunks: %w", err)
	}
	return chunks, nil
}

func (r *DocumentChunkRepo) CountDistinctDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DocumentChunk{}).
		Distinct("document_id").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count distinct documents: %w", err)
	}
	return count, nil
}

func (r *DocumentChunkRepo) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DocumentChunk{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count document chunks: %w", err)
	}
	return count, nil
}
