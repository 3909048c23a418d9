package ingestion_service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/chunk_service"
	"github.com/finsighthq/finsight/services/embedding_service"
	"github.com/finsighthq/finsight/services/extraction_service"
)

const DefaultMaxUploadBytes = 50 << 20

// DocumentStore is the slice of the store the orchestrator needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *rag_type.Document) error
	UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error
	UpdateDocumentContent(ctx context.Context, id, content string, metadata rag_type.DocumentMetadata) error
	MarkDocumentCompleted(ctx context.Context, id string, chunkCount int, processedAt time.Time) error
	GetDocument(ctx context.Context, id string) (*rag_type.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	InsertChunks(ctx context.Context, chunks []rag_type.Chunk) error
	DeleteChunks(ctx context.Context, documentID string) error
}

// Orchestrator sequences extraction, chunking, embedding and persistence
// for one document, driving its status lifecycle:
// queued -> processing -> completed | error. Error states are terminal; a
// re-upload creates a new document.
type Orchestrator struct {
	store          DocumentStore
	extractor      *extraction_service.DocumentExtractor
	chunker        *chunk_service.Chunker
	embedder       embedding_service.Embedder
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewOrchestrator(store DocumentStore, extractor *extraction_service.DocumentExtractor,
	chunker *chunk_service.Chunker, embedder embedding_service.Embedder,
	maxUploadBytes int64, logger *slog.Logger) *Orchestrator {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Orchestrator{
		store:          store,
		extractor:      extractor,
		chunker:        chunker,
		embedder:       embedder,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Ingest runs the full pipeline synchronously. On any failure after the
// document record exists, the document ends in the error state with a
// readable message; it is never left in processing.
func (o *Orchestrator) Ingest(ctx context.Context, filename, mediaType string, data []byte) (*rag_type.Document, error) {
	if int64(len(data)) > o.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", rag_type.ErrOversizedInput, len(data), o.maxUploadBytes)
	}

	doc := &rag_type.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FileType:   mediaType,
		FileSize:   int64(len(data)),
		Status:     rag_type.StatusQueued,
		UploadedAt: time.Now().UTC(),
	}

	if err := o.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	o.setStatus(ctx, doc, rag_type.StatusProcessing, "")

	o.logger.Info("Processing document",
		slog.String("document_id", doc.ID),
		slog.String("filename", filename),
		slog.String("media_type", mediaType),
		slog.Int("size", len(data)))

	parsed, err := o.extractor.Extract(data, mediaType)
	if err != nil {
		o.logger.Error("Text extraction failed",
			slog.String("document_id", doc.ID),
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		o.setStatus(ctx, doc, rag_type.StatusError, err.Error())
		return doc, err
	}

	metadata := parsed.Metadata
	metadata.WordCount = len(strings.Fields(parsed.Text))
	metadata.ContentPreview = preview(parsed.Text)
	doc.Metadata = metadata
	doc.Content = parsed.Text

	if err := o.store.UpdateDocumentContent(ctx, doc.ID, parsed.Text, metadata); err != nil {
		o.setStatus(ctx, doc, rag_type.StatusError, err.Error())
		return doc, err
	}

	if err := o.index(ctx, doc, parsed.Text); err != nil {
		return doc, err
	}

	o.logger.Info("Document processed",
		slog.String("document_id", doc.ID),
		slog.Int("chunks", doc.ChunkCount))
	return doc, nil
}

// Reprocess deletes all chunks of an existing document and rebuilds them
// from its stored normalized text, e.g. after switching the embedding
// strategy. From the caller's perspective the replacement is all-or-
// nothing: a failure leaves the document in the error state with no
// completed-looking chunk set.
func (o *Orchestrator) Reprocess(ctx context.Context, id string) (*rag_type.Document, error) {
	doc, err := o.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if strings.TrimSpace(doc.Content) == "" {
		o.setStatus(ctx, doc, rag_type.StatusError, rag_type.ErrEmptyDocument.Error())
		return doc, rag_type.ErrEmptyDocument
	}

	o.setStatus(ctx, doc, rag_type.StatusProcessing, "")
	if err := o.store.DeleteChunks(ctx, doc.ID); err != nil {
		o.setStatus(ctx, doc, rag_type.StatusError, err.Error())
		return doc, err
	}

	if err := o.index(ctx, doc, doc.Content); err != nil {
		return doc, err
	}
	return doc, nil
}

// Delete removes the document and everything under it. Safe to call for
// ids that no longer exist, and doubles as the cleanup path for units
// that materialize after an abandoned ingestion.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if err := o.store.DeleteChunks(ctx, id); err != nil {
		return err
	}
	return o.store.DeleteDocument(ctx, id)
}

// index chunks, embeds and persists the text, then finalizes the document.
func (o *Orchestrator) index(ctx context.Context, doc *rag_type.Document, text string) error {
	texts := o.chunker.Split(text)
	if len(texts) == 0 {
		err := fmt.Errorf("%w: no chunk passed the minimum size", rag_type.ErrEmptyDocument)
		o.setStatus(ctx, doc, rag_type.StatusError, err.Error())
		return err
	}

	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		o.logger.Error("Embedding generation failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
		o.setStatus(ctx, doc, rag_type.StatusError, "embedding generation failed: "+err.Error())
		return err
	}

	chunks := make([]rag_type.Chunk, len(texts))
	for i, content := range texts {
		metadata := chunk_service.Enrich(content)
		metadata.EmbeddingStrategy = o.embedder.Strategy()
		chunks[i] = rag_type.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Content:    content,
			Index:      i,
			Embedding:  vectors[i],
			Metadata:   metadata,
		}
	}

	if err := o.store.InsertChunks(ctx, chunks); err != nil {
		o.logger.Error("Chunk persistence failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
		// Best-effort cleanup so no orphaned chunks sit under an
		// errored document.
		if cleanupErr := o.store.DeleteChunks(context.WithoutCancel(ctx), doc.ID); cleanupErr != nil {
			o.logger.Warn("Chunk cleanup failed",
				slog.String("document_id", doc.ID),
				slog.String("error", cleanupErr.Error()))
		}
		o.setStatus(ctx, doc, rag_type.StatusError, "chunk persistence failed: "+err.Error())
		return err
	}

	processedAt := time.Now().UTC()
	if err := o.store.MarkDocumentCompleted(ctx, doc.ID, len(chunks), processedAt); err != nil {
		o.setStatus(ctx, doc, rag_type.StatusError, err.Error())
		return err
	}

	doc.Status = rag_type.StatusCompleted
	doc.ChunkCount = len(chunks)
	doc.ProcessedAt = &processedAt
	doc.Error = ""
	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, doc *rag_type.Document, status, errMsg string) {
	doc.Status = status
	doc.Error = errMsg
	if err := o.store.UpdateDocumentStatus(ctx, doc.ID, status, errMsg); err != nil {
		o.logger.Error("Failed to update document status",
			slog.String("document_id", doc.ID),
			slog.String("status", status),
			slog.String("error", err.Error()))
	}
}

func preview(text string) string {
	if len(text) > 250 {
		return text[:250] + "..."
	}
	return text
}
