package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/answer_service"
)

// Searcher is the retrieval engine surface the chat handler needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []rag_type.SearchResult
}

// Answerer composes a grounded answer from retrieved results.
type Answerer interface {
	Answer(ctx context.Context, query string, results []rag_type.SearchResult, history []rag_type.ChatTurn) (*answer_service.Answer, error)
}

type ChatHandler struct {
	engine      Searcher
	synthesizer Answerer
	searchLimit int
	logger      *slog.Logger
}

func NewChatHandler(engine Searcher, synthesizer Answerer, searchLimit int, logger *slog.Logger) *ChatHandler {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &ChatHandler{
		engine:      engine,
		synthesizer: synthesizer,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

type chatRequest struct {
	Question string              `json:"question"`
	History  []rag_type.ChatTurn `json:"history,omitempty"`
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode chat request",
			slog.String("error", err.Error()))
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	results := h.engine.Search(r.Context(), req.Question, h.searchLimit)

	answer, err := h.synthesizer.Answer(r.Context(), req.Question, results, req.History)
	if err != nil {
		h.logger.Error("Answer synthesis failed",
			slog.String("error", err.Error()))
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
