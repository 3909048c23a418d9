package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finsighthq/finsight/rag_type"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeTaxonomyError maps the pipeline error taxonomy onto HTTP status
// classes: 400 for caller mistakes, 422 for content the pipeline cannot
// process, 500 for backend and provider failures.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	var parseErr *rag_type.ParseError
	var notImpl *rag_type.NotImplementedError

	switch {
	case errors.Is(err, rag_type.ErrUnsupportedFormat):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rag_type.ErrOversizedInput):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rag_type.ErrEmptyDocument):
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &parseErr):
		writeJSONError(w, parseErr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &notImpl):
		writeJSONError(w, notImpl.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, rag_type.ErrProviderUnavailable):
		writeJSONError(w, err.Error()+" (set OPENAI_API_KEY to enable the provider)", http.StatusInternalServerError)
	case errors.Is(err, rag_type.ErrStorageFailure):
		writeJSONError(w, "storage failure, please retry", http.StatusInternalServerError)
	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
