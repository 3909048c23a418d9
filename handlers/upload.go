package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/extraction_service"
)

// Ingestor runs the document pipeline for one upload.
type Ingestor interface {
	Ingest(ctx context.Context, filename, mediaType string, data []byte) (*rag_type.Document, error)
}

type UploadHandler struct {
	orchestrator   Ingestor
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewUploadHandler(orchestrator Ingestor, maxUploadBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		orchestrator:   orchestrator,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type uploadResponse struct {
	Message  string             `json:"message"`
	Document *rag_type.Document `json:"document"`
	Chunks   int                `json:"chunks"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received file upload request")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	mediaType := declaredMediaType(header.Header.Get("Content-Type"), header.Filename)

	h.logger.Debug("Starting document ingestion",
		slog.String("filename", header.Filename),
		slog.String("media_type", mediaType),
		slog.Int64("size", header.Size))

	doc, err := h.orchestrator.Ingest(r.Context(), header.Filename, mediaType, buf.Bytes())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:  "File uploaded and processed successfully",
		Document: doc,
		Chunks:   doc.ChunkCount,
	})
}

// declaredMediaType prefers the upload's Content-Type header, falling back
// to the filename extension when the header is missing or generic.
func declaredMediaType(contentType, filename string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil &&
		mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}
	if mediaType, ok := extraction_service.MediaTypeForExtension(filepath.Ext(filename)); ok {
		return mediaType
	}
	return contentType
}
