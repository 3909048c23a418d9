package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finsighthq/finsight/rag_type"
)

// DocumentLister is the read surface of the store used by the library
// endpoints.
type DocumentLister interface {
	ListDocuments(ctx context.Context, search string) ([]rag_type.Document, error)
	GetDocument(ctx context.Context, id string) (*rag_type.Document, error)
}

// DocumentManager covers the mutating document operations.
type DocumentManager interface {
	Delete(ctx context.Context, id string) error
	Reprocess(ctx context.Context, id string) (*rag_type.Document, error)
}

// Summarizer produces a short summary of a document's text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type DocumentHandler struct {
	store      DocumentLister
	manager    DocumentManager
	summarizer Summarizer
	logger     *slog.Logger
}

func NewDocumentHandler(store DocumentLister, manager DocumentManager, summarizer Summarizer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:      store,
		manager:    manager,
		summarizer: summarizer,
		logger:     logger,
	}
}

type listResponse struct {
	Documents []rag_type.Document `json:"documents"`
	Count     int                 `json:"count"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	documents, err := h.store.ListDocuments(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("Failed to list documents",
			slog.String("error", err.Error()))
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Documents: documents,
		Count:     len(documents),
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete document",
			slog.String("document_id", id),
			slog.String("error", err.Error()))
		writeTaxonomyError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.manager.Reprocess(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to reprocess document",
			slog.String("document_id", id),
			slog.String("error", err.Error()))
		writeTaxonomyError(w, err)
		return
	}
	if doc == nil {
		writeJSONError(w, "Document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "Document reprocessed successfully",
		Document: doc,
		Chunks:   doc.ChunkCount,
	})
}

func (h *DocumentHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	if doc == nil {
		writeJSONError(w, "Document not found", http.StatusNotFound)
		return
	}
	if doc.Content == "" {
		writeJSONError(w, "Document has no extracted text to summarize", http.StatusUnprocessableEntity)
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), doc.Content)
	if err != nil {
		h.logger.Error("Failed to summarize document",
			slog.String("document_id", id),
			slog.String("error", err.Error()))
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"document_id": id,
		"summary":     summary,
	})
}
