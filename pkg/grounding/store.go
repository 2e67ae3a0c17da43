// Package grounding implements the Grounding Store (spec.md §4.4):
// content-addressed chunking of uploaded context documents, persistence
// of chunks, duplicate detection, and pluggable similarity search used
// to enrich analyzer prompts. Grounded on app/services/vectorizer.py.
package grounding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// EmbeddingStore is the opaque similarity-search backend spec.md §1
// treats as an external collaborator. Store indexes one chunk for
// later retrieval; Search returns the chunk contents most relevant to
// query, newest implementations first.
type EmbeddingStore interface {
	Index(ctx context.Context, chunk models.DocumentChunk) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
	Name() string
}

// ChunkRepo is the narrow persistence contract the store needs from
// pkg/repository, kept as an interface here so grounding doesn't import
// gorm directly.
type ChunkRepo interface {
	Create(ctx context.Context, chunk *models.DocumentChunk) error
	FindByFilename(ctx context.Context, filename string) ([]models.DocumentChunk, error)
	All(ctx context.Context) ([]models.DocumentChunk, error)
	CountDistinctDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
}

// Store ingests documents, answers duplicate checks, and enriches
// analyzer prompts via similarity search.
type Store struct {
	fs    afero.Fs
	repo  ChunkRepo
	index EmbeddingStore
	log   hclog.Logger
}

// New builds a Store. fs is the upload-folder filesystem abstraction
// (spec.md §6.3 UPLOAD_FOLDER); index is the concrete EmbeddingStore
// selected by VECTOR_DB_PATH/VECTOR_COLLECTION.
func New(fs afero.Fs, repo ChunkRepo, index EmbeddingStore, log hclog.Logger) *Store {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Store{fs: fs, repo: repo, index: index, log: log.Named("grounding")}
}

// DuplicateCheck is the result of CheckDuplicate (spec.md §6.1's upload
// endpoint 409 response; supplemented from vectorizer.py's
// check_duplicate_file).
type DuplicateCheck struct {
	Exists     bool
	DocumentID string
	ChunkCount int
	Message    string
}

// CheckDuplicate reports whether filename (with this exact content) has
// already been ingested, by content hash rather than reconstructing and
// string-comparing the full document.
func (s *Store) CheckDuplicate(ctx context.Context, filename, content string) (DuplicateCheck, error) {
	existing, err := s.repo.FindByFilename(ctx, filename)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("check duplicate for %s: %w", filename, err)
	}
	if len(existing) == 0 {
		return DuplicateCheck{Exists: false, Message: fmt.Sprintf("no file found named %q", filename)}, nil
	}

	hash := contentHash(content)
	for _, chunk := range existing {
		if chunk.ContentHash == hash {
			return DuplicateCheck{
				Exists:     true,
				DocumentID: chunk.DocumentID,
				ChunkCount: countChunksForDocument(existing, chunk.DocumentID),
				Message:    "file already exists with identical content",
			}, nil
		}
	}
	return DuplicateCheck{
		Exists:  true,
		Message: "a file with this name exists but its content differs",
	}, nil
}

func countChunksForDocument(chunks []models.DocumentChunk, documentID string) int {
	n := 0
	for _, c := range chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n
}

// Ingest chunks content, persists each chunk, and indexes it into the
// EmbeddingStore for later similarity search. Re-ingesting identical
// (filename, content) is a no-op that returns the existing documentId
// (spec.md §8 invariant 6).
func (s *Store) Ingest(ctx context.Context, filename, content string) (string, error) {
	dup, err := s.CheckDuplicate(ctx, filename, content)
	if err != nil {
		return "", err
	}
	if dup.Exists && dup.DocumentID != "" {
		s.log.Info("skipping duplicate ingest", "filename", filename, "document_id", dup.DocumentID)
		return dup.DocumentID, nil
	}

	documentID := uuid.NewString()
	hash := contentHash(content)
	chunks := SplitText(content)

	for i, text := range chunks {
		chunk := models.DocumentChunk{
			DocumentID:  documentID,
			Filename:    filename,
			ChunkIndex:  i,
			Content:     text,
			ContentHash: hash,
		}
		if err := s.repo.Create(ctx, &chunk); err != nil {
			return "", fmt.Errorf("persist chunk %d of %s: %w", i, filename, err)
		}
		if s.index != nil {
			if err := s.index.Index(ctx, chunk); err != nil {
				s.log.Warn("failed to index chunk for similarity search", "filename", filename, "chunk_index", i, "error", err)
			}
		}
	}

	s.log.Info("ingested document", "filename", filename, "document_id", documentID, "chunks", len(chunks))
	return documentID, nil
}

// SimilarChunks returns up to limit chunk contents relevant to query,
// used to build the "SIMILAR CARDS HISTORY" prompt section (spec.md
// §4.2). Returns an empty slice, not an error, when no EmbeddingStore is
// configured.
func (s *Store) SimilarChunks(ctx context.Context, query string, limit int) ([]string, error) {
	if s.index == nil {
		return nil, nil
	}
	return s.index.Search(ctx, query, limit)
}

// ReadContext reconstructs the full "APPLICATION CONTEXT" block fed to
// the analyzer (spec.md §4.4 ReadContext): every chunk grouped by
// DocumentID, sorted by ChunkIndex within each group, joined with "\n",
// and each document rendered as a "=== FICHIER: {filename} ===" block.
// Returns ok=false when the store holds no chunks, signaling the
// analyzer's "grounding store is empty" default-LOW path (spec.md §4.2).
func (s *Store) ReadContext(ctx context.Context) (content string, ok bool, err error) {
	chunks, err := s.repo.All(ctx)
	if err != nil {
		return "", false, fmt.Errorf("read grounding context: %w", err)
	}
	if len(chunks) == 0 {
		return "", false, nil
	}

	type document struct {
		filename string
		chunks   []models.DocumentChunk
	}
	order := make([]string, 0)
	byDoc := make(map[string]*document)
	for _, c := range chunks {
		doc, exists := byDoc[c.DocumentID]
		if !exists {
			doc = &document{filename: c.Filename}
			byDoc[c.DocumentID] = doc
			order = append(order, c.DocumentID)
		}
		doc.chunks = append(doc.chunks, c)
	}

	var blocks []string
	for _, documentID := range order {
		doc := byDoc[documentID]
		sort.SliceStable(doc.chunks, func(i, j int) bool { return doc.chunks[i].ChunkIndex < doc.chunks[j].ChunkIndex })
		contents := make([]string, len(doc.chunks))
		for i, c := range doc.chunks {
			contents[i] = c.Content
		}
		blocks = append(blocks, fmt.Sprintf("=== FICHIER: %s ===\n%s", doc.filename, strings.Join(contents, "\n")))
	}
	return strings.Join(blocks, "\n\n"), true, nil
}

// Stats reports document/chunk counts (supplemented from vectorizer.py's
// get_document_stats).
type Stats struct {
	TotalDocuments int64
	TotalChunks    int64
	Backend        string
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	docs, err := s.repo.CountDistinctDocuments(ctx)
	if err != nil {
		return Stats{}, err
	}
	chunks, err := s.repo.CountChunks(ctx)
	if err != nil {
		return Stats{}, err
	}
	backend := "none"
	if s.index != nil {
		backend = s.index.Name()
	}
	return Stats{TotalDocuments: docs, TotalChunks: chunks, Backend: backend}, nil
}

func contentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
