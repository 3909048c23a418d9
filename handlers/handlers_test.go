package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsighthq/finsight/handlers"
	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/answer_service"
	"github.com/finsighthq/finsight/services/extraction_service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubIngestor struct {
	doc *rag_type.Document
	err error

	gotFilename  string
	gotMediaType string
}

func (s *stubIngestor) Ingest(ctx context.Context, filename, mediaType string, data []byte) (*rag_type.Document, error) {
	s.gotFilename = filename
	s.gotMediaType = mediaType
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadHandlerSuccess(t *testing.T) {
	ingestor := &stubIngestor{
		doc: &rag_type.Document{
			ID:         "doc-1",
			Filename:   "report.xlsx",
			Status:     rag_type.StatusCompleted,
			ChunkCount: 3,
		},
	}
	handler := handlers.NewUploadHandler(ingestor, 1<<20, testLogger())

	body, contentType := multipartUpload(t, "report.xlsx", []byte("workbook bytes"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "report.xlsx", ingestor.gotFilename)
	// The generic multipart content type falls back to the extension.
	assert.Equal(t, extraction_service.TypeSpreadsheet, ingestor.gotMediaType)

	var resp struct {
		Message string             `json:"message"`
		Chunks  int                `json:"chunks"`
		Doc     *rag_type.Document `json:"document"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Chunks)
	assert.Equal(t, "doc-1", resp.Doc.ID)
}

func TestUploadHandlerUnsupportedFormat(t *testing.T) {
	ingestor := &stubIngestor{err: rag_type.ErrUnsupportedFormat}
	handler := handlers.NewUploadHandler(ingestor, 1<<20, testLogger())

	body, contentType := multipartUpload(t, "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	handler := handlers.NewUploadHandler(&stubIngestor{}, 1<<20, testLogger())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubSearcher struct {
	results []rag_type.SearchResult
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) []rag_type.SearchResult {
	return s.results
}

type stubAnswerer struct {
	answer *answer_service.Answer
	err    error
}

func (s *stubAnswerer) Answer(ctx context.Context, query string, results []rag_type.SearchResult, history []rag_type.ChatTurn) (*answer_service.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func TestChatHandlerSuccess(t *testing.T) {
	searcher := &stubSearcher{results: []rag_type.SearchResult{
		{DocumentID: "doc-1", Filename: "q3.pdf", Content: "revenue context"},
	}}
	answerer := &stubAnswerer{answer: &answer_service.Answer{
		Text: "Revenue was $2.3 billion.",
		Mode: answer_service.ModeLLM,
		Sources: []rag_type.Source{
			{DocumentID: "doc-1", Filename: "q3.pdf"},
		},
	}}
	handler := handlers.NewChatHandler(searcher, answerer, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"question": "What was the revenue?"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp answer_service.Answer
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Revenue was $2.3 billion.", resp.Text)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "q3.pdf", resp.Sources[0].Filename)
}

func TestChatHandlerEmptyQuestion(t *testing.T) {
	handler := handlers.NewChatHandler(&stubSearcher{}, &stubAnswerer{}, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question": "   "}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandlerInvalidBody(t *testing.T) {
	handler := handlers.NewChatHandler(&stubSearcher{}, &stubAnswerer{}, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandlerProviderUnavailable(t *testing.T) {
	answerer := &stubAnswerer{err: rag_type.ErrProviderUnavailable}
	handler := handlers.NewChatHandler(&stubSearcher{}, answerer, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question": "anything"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "OPENAI_API_KEY")
}

type stubDocumentStore struct {
	documents []rag_type.Document
	doc       *rag_type.Document
	err       error
}

func (s *stubDocumentStore) ListDocuments(ctx context.Context, search string) ([]rag_type.Document, error) {
	return s.documents, s.err
}

func (s *stubDocumentStore) GetDocument(ctx context.Context, id string) (*rag_type.Document, error) {
	return s.doc, s.err
}

type stubManager struct {
	doc       *rag_type.Document
	deleteErr error
}

func (s *stubManager) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *stubManager) Reprocess(ctx context.Context, id string) (*rag_type.Document, error) {
	return s.doc, nil
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.summary, s.err
}

func documentRouter(h *handlers.DocumentHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/documents", h.List).Methods("GET")
	r.HandleFunc("/documents/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/documents/{id}/reprocess", h.Reprocess).Methods("POST")
	r.HandleFunc("/documents/{id}/summary", h.Summarize).Methods("POST")
	return r
}

func TestListDocuments(t *testing.T) {
	store := &stubDocumentStore{documents: []rag_type.Document{
		{ID: "doc-1", Filename: "a.pdf"},
		{ID: "doc-2", Filename: "b.xlsx"},
	}}
	handler := handlers.NewDocumentHandler(store, &stubManager{}, &stubSummarizer{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents []rag_type.Document `json:"documents"`
		Count     int                 `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Documents, 2)
}

func TestDeleteDocument(t *testing.T) {
	handler := handlers.NewDocumentHandler(&stubDocumentStore{}, &stubManager{}, &stubSummarizer{}, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteDocumentStorageFailure(t *testing.T) {
	manager := &stubManager{deleteErr: rag_type.ErrStorageFailure}
	handler := handlers.NewDocumentHandler(&stubDocumentStore{}, manager, &stubSummarizer{}, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReprocessUnknownDocument(t *testing.T) {
	handler := handlers.NewDocumentHandler(&stubDocumentStore{}, &stubManager{}, &stubSummarizer{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/documents/missing/reprocess", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummarizeDocument(t *testing.T) {
	store := &stubDocumentStore{doc: &rag_type.Document{ID: "doc-1", Content: "extracted text"}}
	summarizer := &stubSummarizer{summary: "A short summary."}
	handler := handlers.NewDocumentHandler(store, &stubManager{}, summarizer, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/summary", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A short summary.")
}

func TestSummarizeDocumentWithoutContent(t *testing.T) {
	store := &stubDocumentStore{doc: &rag_type.Document{ID: "doc-1"}}
	handler := handlers.NewDocumentHandler(store, &stubManager{}, &stubSummarizer{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/summary", nil)
	rec := httptest.NewRecorder()
	documentRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealthOK(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthDegraded(t *testing.T) {
	handler := handlers.NewHealthHandler(&stubPinger{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
