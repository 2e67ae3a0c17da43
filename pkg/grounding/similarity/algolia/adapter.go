// Package algolia implements grounding.EmbeddingStore over a hosted
// Algolia index, grounded on the teacher's
// pkg/search/adapters/algolia (its Config shape and credential
// validation, inferred from adapter_test.go since no adapter.go shipped
// in the retrieval pack) and on algoliasearch-client-go/v3's real
// search.NewClient/InitIndex/SaveObject/Search API.
package algolia

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// Config configures an Adapter. DocsIndexName is the only index this
// domain needs; the rest of the field set mirrors the teacher's Config
// for wiring familiarity even though grounding only ever uses one
// index (spec.md §6.3 VECTOR_COLLECTION).
type Config struct {
	AppID           string
	WriteAPIKey     string
	SearchAPIKey    string
	DocsIndexName   string
	DraftsIndexName string
}

// Adapter implements grounding.EmbeddingStore against a single Algolia
// index holding document chunks.
type Adapter struct {
	appID     string
	client    *search.Client
	docsIndex *search.Index
}

// NewAdapter validates cfg and opens the chunk index.
func NewAdapter(cfg *Config) (*Adapter, error) {
	if cfg.AppID == "" || cfg.WriteAPIKey == "" {
		return nil, fmt.Errorf("algolia credentials required: AppID and WriteAPIKey must be set")
	}
	if cfg.DocsIndexName == "" {
		return nil, fmt.Errorf("algolia DocsIndexName required")
	}

	client := search.NewClient(cfg.AppID, cfg.WriteAPIKey)
	return &Adapter{
		appID:     cfg.AppID,
		client:    client,
		docsIndex: client.InitIndex(cfg.DocsIndexName),
	}, nil
}

// indexedChunk is the object body Algolia stores and returns from
// search; ObjectID is mandatory per Algolia's data model.
type indexedChunk struct {
	ObjectID   string `json:"objectID"`
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
}

func objectID(chunk models.DocumentChunk) string {
	return fmt.Sprintf("%s-%d", chunk.DocumentID, chunk.ChunkIndex)
}

// Index upserts one chunk as an Algolia object.
func (a *Adapter) Index(ctx context.Context, chunk models.DocumentChunk) error {
	obj := indexedChunk{
		ObjectID:   objectID(chunk),
		DocumentID: chunk.DocumentID,
		Filename:   chunk.Filename,
		ChunkIndex: chunk.ChunkIndex,
		Content:    chunk.Content,
	}
	res, err := a.docsIndex.SaveObject(obj, search.Ctx(ctx))
	if err != nil {
		return fmt.Errorf("index chunk %s: %w", obj.ObjectID, err)
	}
	return res.Wait()
}

// Search runs a free-text query against the chunk index.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	res, err := a.docsIndex.Search(query,
		search.Ctx(ctx),
		opt.HitsPerPage(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("search chunk index: %w", err)
	}

	out := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if content, ok := hit["content"].(string); ok {
			out = append(out, content)
		}
	}
	return out, nil
}

func (a *Adapter) Name() string { return "algolia" }
