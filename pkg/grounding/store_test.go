package grounding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// fakeChunkRepo is an in-memory stand-in for pkg/repository's
// DocumentChunkRepo, keeping this package's tests free of a gorm
// dependency.
type fakeChunkRepo struct {
	chunks []models.DocumentChunk
}

func (f *fakeChunkRepo) Create(ctx context.Context, chunk *models.DocumentChunk) error {
	f.chunks = append(f.chunks, *chunk)
	return nil
}

func (f *fakeChunkRepo) FindByFilename(ctx context.Context, filename string) ([]models.DocumentChunk, error) {
	var out []models.DocumentChunk
	for _, c := range f.chunks {
		if c.Filename == filename {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkRepo) All(ctx context.Context) ([]models.DocumentChunk, error) {
	return f.chunks, nil
}

func (f *fakeChunkRepo) CountDistinctDocuments(ctx context.Context) (int64, error) {
	seen := map[string]bool{}
	for _, c := range f.chunks {
		seen[c.DocumentID] = true
	}
	return int64(len(seen)), nil
}

func (f *fakeChunkRepo) CountChunks(ctx context.Context) (int64, error) {
	return int64(len(f.chunks)), nil
}

type fakeEmbeddingStore struct {
	indexed []models.DocumentChunk
}

func (f *fakeEmbeddingStore) Index(ctx context.Context, chunk models.DocumentChunk) error {
	f.indexed = append(f.indexed, chunk)
	return nil
}

func (f *fakeEmbeddingStore) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var out []string
	for _, c := range f.indexed {
		out = append(out, c.Content)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEmbeddingStore) Name() string { return "fake" }

func TestStoreIngestChunksAndIndexes(t *testing.T) {
	repo := &fakeChunkRepo{}
	index := &fakeEmbeddingStore{}
	store := New(nil, repo, index, nil)

	docID, err := store.Ingest(context.Background(), "runbook.md", "short document content")
	require.NoError(t, err)
	assert.NotEmpty(t, docID)
	assert.Len(t, repo.chunks, 1)
	assert.Len(t, index.indexed, 1)
}

func TestStoreIngestIsIdempotentForIdenticalContent(t *testing.T) {
	repo := &fakeChunkRepo{}
	index := &fakeEmbeddingStore{}
	store := New(nil, repo, index, nil)
	ctx := context.Background()

	first, err := store.Ingest(ctx, "runbook.md", "identical content")
	require.NoError(t, err)

	second, err := store.Ingest(ctx, "runbook.md", "identical content")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.chunks, 1, "re-ingesting identical content must not create new chunks")
}

func TestStoreCheckDuplicateDetectsContentDrift(t *testing.T) {
	repo := &fakeChunkRepo{}
	store := New(nil, repo, nil, nil)
	ctx := context.Background()

	_, err := store.Ingest(ctx, "runbook.md", "version one")
	require.NoError(t, err)

	dup, err := store.CheckDuplicate(ctx, "runbook.md", "version two")
	require.NoError(t, err)
	assert.True(t, dup.Exists)
	assert.Empty(t, dup.DocumentID, "content differs, so no matching document id")
}

func TestStoreCheckDuplicateNoFileFound(t *testing.T) {
	store := New(nil, &fakeChunkRepo{}, nil, nil)
	dup, err := store.CheckDuplicate(context.Background(), "missing.md", "anything")
	require.NoError(t, err)
	assert.False(t, dup.Exists)
}

func TestStoreStatsReportsBackendName(t *testing.T) {
	repo := &fakeChunkRepo{}
	index := &fakeEmbeddingStore{}
	store := New(nil, repo, index, nil)
	ctx := context.Background()

	_, err := store.Ingest(ctx, "a.md", "alpha content")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "b.md", "beta content")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDocuments)
	assert.Equal(t, "fake", stats.Backend)
}

func TestStoreReadContextEmptyStore(t *testing.T) {
	store := New(nil, &fakeChunkRepo{}, nil, nil)
	content, ok, err := store.ReadContext(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
}

func TestStoreReadContextGroupsByDocumentAndOrdersChunks(t *testing.T) {
	repo := &fakeChunkRepo{}
	store := New(nil, repo, nil, nil)
	ctx := context.Background()

	_, err := store.Ingest(ctx, "short.md", "single chunk content")
	require.NoError(t, err)

	content, ok, err := store.ReadContext(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, content, "=== FICHIER: short.md ===")
	assert.Contains(t, content, "single chunk content")

	repo.chunks = append(repo.chunks,
		models.DocumentChunk{DocumentID: "doc-b", Filename: "b.md", ChunkIndex: 1, Content: "b-second"},
		models.DocumentChunk{DocumentID: "doc-b", Filename: "b.md", ChunkIndex: 0, Content: "b-first"},
	)
	content, _, err = store.ReadContext(ctx)
	require.NoError(t, err)
	assert.Contains(t, content, "=== FICHIER: b.md ===\nb-first\nb-second")
}

func TestStoreSimilarChunksWithoutIndexReturnsNil(t *testing.T) {
	store := New(nil, &fakeChunkRepo{}, nil, nil)
	chunks, err := store.SimilarChunks(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}
