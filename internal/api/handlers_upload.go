package api

import (
	"io"
	"net/http"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
)

// handleUpload implements POST /fileapi/upload (spec.md §6.1): multipart
// file upload into the grounding store, returning 409 with duplicate
// info when the same (filename, content) was already ingested.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.Validation("missing multipart file field \"file\""))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apierror.Internal("read uploaded file failed", err))
		return
	}

	dup, err := s.grounding.CheckDuplicate(r.Context(), header.Filename, string(content))
	if err != nil {
		writeError(w, apierror.Internal("duplicate check failed", err))
		return
	}
	if dup.Exists && dup.DocumentID != "" {
		writeJSON(w, http.StatusConflict, envelope{
			"status":       "error",
			"message":      dup.Message,
			"document_id":  dup.DocumentID,
			"chunk_count":  dup.ChunkCount,
		})
		return
	}

	documentID, err := s.grounding.Ingest(r.Context(), header.Filename, string(content))
	if err != nil {
		writeError(w, apierror.Internal("ingest document failed", err))
		return
	}

	writeSuccess(w, envelope{
		"document_id":       documentID,
		"original_filename": header.Filename,
		"content_length":    len(content),
	})
}
