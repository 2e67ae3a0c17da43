// Package bleve implements grounding.EmbeddingStore over an embedded
// full-text index, grounded on the teacher's
// pkg/search/adapters/bleve/adapter.go: same open-or-create index
// pattern, same bleve.NewMatchQuery search shape, narrowed to the one
// document-chunk mapping this domain needs.
package bleve

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// Adapter implements grounding.EmbeddingStore backed by a single Bleve
// index rooted at IndexPath (spec.md §6.3 VECTOR_DB_PATH).
type Adapter struct {
	index bleve.Index
}

// New opens or creates the chunk index at indexPath.
func New(indexPath string) (*Adapter, error) {
	if indexPath == "" {
		return nil, fmt.Errorf("bleve index path required")
	}
	idx, err := openOrCreateIndex(indexPath, chunkMapping())
	if err != nil {
		return nil, fmt.Errorf("open chunk index: %w", err)
	}
	return &Adapter{index: idx}, nil
}

func openOrCreateIndex(path string, indexMapping mapping.IndexMapping) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, indexMapping)
	}
	return idx, err
}

func chunkMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", textField)
	docMapping.AddFieldMappingsAt("filename", bleve.NewKeywordFieldMapping())
	m.AddDocumentMapping("_default", docMapping)

	return m
}

// indexedChunk is what actually goes into the Bleve index; kept
// separate from models.DocumentChunk so the search document shape can
// evolve independently of the persisted row shape.
type indexedChunk struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
}

func docID(chunk models.DocumentChunk) string {
	return fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex)
}

// Index adds or updates one chunk in the search index.
func (a *Adapter) Index(ctx context.Context, chunk models.DocumentChunk) error {
	doc := indexedChunk{
		DocumentID: chunk.DocumentID,
		Filename:   chunk.Filename,
		ChunkIndex: chunk.ChunkIndex,
		Content:    chunk.Content,
	}
	return a.index.Index(docID(chunk), doc)
}

// Search returns up to limit chunk contents matching query, ranked by
// Bleve's default relevance scoring (same bleve.NewMatchQuery shape the
// teacher's performSearch uses for free-text queries).
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"content"}

	result, err := a.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search chunk index: %w", err)
	}

	out := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if content, ok := hit.Fields["content"].(string); ok {
			out = append(out, content)
		}
	}
	return out, nil
}

func (a *Adapter) Name() string { return "bleve" }

// Close releases the underlying index handle.
func (a *Adapter) Close() error {
	return a.index.Close()
}
