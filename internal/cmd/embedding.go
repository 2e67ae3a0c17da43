package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/config"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding/similarity/algolia"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding/similarity/bleve"
)

// buildEmbeddingStore selects the grounding.EmbeddingStore backend named
// by VECTOR_COLLECTION (spec.md §6.3): "algolia" opens a hosted index
// from ALGOLIA_* env vars, anything else opens an embedded Bleve index
// under cfg.Vector.DBPath.
func buildEmbeddingStore(cfg *config.Config, log hclog.Logger) (grounding.EmbeddingStore, error) {
	if cfg.Vector.Collection == "algolia" {
		adapter, err := algolia.NewAdapter(&algolia.Config{
			AppID:         os.Getenv("ALGOLIA_APP_ID"),
			WriteAPIKey:   os.Getenv("ALGOLIA_WRITE_API_KEY"),
			SearchAPIKey:  os.Getenv("ALGOLIA_SEARCH_API_KEY"),
			DocsIndexName: cfg.Vector.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("open algolia index: %w", err)
		}
		return adapter, nil
	}

	path := cfg.Vector.DBPath
	if path == "" {
		path = ".kanban-agent/vector.bleve"
	}
	adapter, err := bleve.New(path)
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	log.Debug("embedding store ready", "backend", "bleve", "path", path)
	return adapter, nil
}
