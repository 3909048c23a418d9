package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/finsighthq/finsight/rag_type"
)

// DocumentStore persists documents and their chunks in Postgres. Embeddings
// live in a pgvector column; similarity search happens in SQL with the
// cosine distance operator.
type DocumentStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, doc *rag_type.Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshaling document metadata: %v", rag_type.ErrStorageFailure, err)
	}

	query := `INSERT INTO documents (id, filename, file_type, file_size, status, uploaded_at, content, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.Exec(ctx, query,
		doc.ID, doc.Filename, doc.FileType, doc.FileSize, doc.Status, doc.UploadedAt, doc.Content, metadata)
	if err != nil {
		return fmt.Errorf("%w: inserting document: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

// UpdateDocumentStatus moves a document through its lifecycle. The error
// message is cleared when empty.
func (s *DocumentStore) UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error {
	query := `UPDATE documents SET status = $2, error = NULLIF($3, '') WHERE id = $1`
	_, err := s.db.Exec(ctx, query, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("%w: updating document status: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

// UpdateDocumentContent stores the normalized text and extraction metadata
// once the normalizer has run.
func (s *DocumentStore) UpdateDocumentContent(ctx context.Context, id, content string, metadata rag_type.DocumentMetadata) error {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: marshaling document metadata: %v", rag_type.ErrStorageFailure, err)
	}

	query := `UPDATE documents SET content = $2, metadata = $3 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, content, encoded); err != nil {
		return fmt.Errorf("%w: updating document content: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

// MarkDocumentCompleted finalizes a successful ingestion: completed status,
// chunk count and processing timestamp in one write.
func (s *DocumentStore) MarkDocumentCompleted(ctx context.Context, id string, chunkCount int, processedAt time.Time) error {
	query := `UPDATE documents
	          SET status = $2, chunk_count = $3, processed_at = $4, error = NULL
	          WHERE id = $1`
	_, err := s.db.Exec(ctx, query, id, rag_type.StatusCompleted, chunkCount, processedAt)
	if err != nil {
		return fmt.Errorf("%w: completing document: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*rag_type.Document, error) {
	query := `SELECT id, filename, file_type, file_size, status, COALESCE(error, ''),
	                 uploaded_at, processed_at, chunk_count, content, metadata
	          FROM documents WHERE id = $1`

	var doc rag_type.Document
	var metadata []byte
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.Status, &doc.Error,
		&doc.UploadedAt, &doc.ProcessedAt, &doc.ChunkCount, &doc.Content, &metadata)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: fetching document: %v", rag_type.ErrStorageFailure, err)
	}

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		s.logger.Warn("Failed to parse document metadata",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
	}
	return &doc, nil
}

// ListDocuments returns documents ordered by upload time descending,
// optionally filtered by a filename substring.
func (s *DocumentStore) ListDocuments(ctx context.Context, search string) ([]rag_type.Document, error) {
	query := `SELECT id, filename, file_type, file_size, status, COALESCE(error, ''),
	                 uploaded_at, processed_at, chunk_count, metadata
	          FROM documents`
	args := make([]interface{}, 0, 1)
	if search != "" {
		query += " WHERE filename ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY uploaded_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", rag_type.ErrStorageFailure, err)
	}
	defer rows.Close()

	documents := make([]rag_type.Document, 0)
	for rows.Next() {
		var doc rag_type.Document
		var metadata []byte
		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.Status, &doc.Error,
			&doc.UploadedAt, &doc.ProcessedAt, &doc.ChunkCount, &metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning document row: %v", rag_type.ErrStorageFailure, err)
		}
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			s.logger.Warn("Failed to parse document metadata",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()))
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", rag_type.ErrStorageFailure, err)
	}
	return documents, nil
}

// DeleteDocument removes a document; chunks follow through the cascading
// foreign key. Deleting an unknown id is not an error.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

// InsertChunks writes all chunks of one document in a single transaction,
// so a partial failure leaves nothing behind.
func (s *DocumentStore) InsertChunks(ctx context.Context, chunks []rag_type.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning chunk transaction: %v", rag_type.ErrStorageFailure, err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO document_chunks (id, document_id, content, chunk_index, embedding, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling chunk metadata: %v", rag_type.ErrStorageFailure, err)
		}
		vec := pgvector.NewVector(chunk.Embedding)
		if _, err := tx.Exec(ctx, query, chunk.ID, chunk.DocumentID, chunk.Content, chunk.Index, vec, metadata); err != nil {
			return fmt.Errorf("%w: inserting chunk %d: %v", rag_type.ErrStorageFailure, chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing chunks: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

func (s *DocumentStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("%w: deleting chunks: %v", rag_type.ErrStorageFailure, err)
	}
	return nil
}

// SemanticSearch returns the chunks nearest to the query embedding by
// cosine distance, restricted to chunks produced by the same embedding
// strategy so mock and provider vectors never rank against each other.
func (s *DocumentStore) SemanticSearch(ctx context.Context, embedding []float32, limit int, strategy string) ([]rag_type.SearchResult, error) {
	query := `SELECT c.document_id, d.filename, d.file_type, c.content,
	                 1 - (c.embedding <=> $1) AS similarity, c.metadata
	          FROM document_chunks c
	          JOIN documents d ON d.id = c.document_id
	          WHERE c.embedding IS NOT NULL
	            AND c.metadata->>'embedding_strategy' = $2
	          ORDER BY c.embedding <=> $1
	          LIMIT $3`

	rows, err := s.db.Query(ctx, query, pgvector.NewVector(embedding), strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: semantic search: %v", rag_type.ErrStorageFailure, err)
	}
	defer rows.Close()

	return s.scanResults(rows, rag_type.MatchSemantic)
}

// LexicalSearch returns chunks whose content contains any of the query
// tokens, case-insensitively. Scoring is left to the caller.
func (s *DocumentStore) LexicalSearch(ctx context.Context, tokens []string, limit int) ([]rag_type.SearchResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	query := `SELECT c.document_id, d.filename, d.file_type, c.content,
	                 0 AS similarity, c.metadata
	          FROM document_chunks c
	          JOIN documents d ON d.id = c.document_id
	          WHERE (`
	args := make([]interface{}, 0, len(tokens)+1)
	for i, token := range tokens {
		if i > 0 {
			query += " OR "
		}
		query += fmt.Sprintf("c.content ILIKE $%d", len(args)+1)
		args = append(args, "%"+token+"%")
	}
	query += fmt.Sprintf(") LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical search: %v", rag_type.ErrStorageFailure, err)
	}
	defer rows.Close()

	return s.scanResults(rows, rag_type.MatchLexical)
}

func (s *DocumentStore) scanResults(rows pgx.Rows, matchKind string) ([]rag_type.SearchResult, error) {
	results := make([]rag_type.SearchResult, 0)
	for rows.Next() {
		var result rag_type.SearchResult
		var metadata []byte
		err := rows.Scan(&result.DocumentID, &result.Filename, &result.FileType,
			&result.Content, &result.Similarity, &metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning search row: %v", rag_type.ErrStorageFailure, err)
		}
		if err := json.Unmarshal(metadata, &result.Metadata); err != nil {
			s.logger.Warn("Failed to parse chunk metadata",
				slog.String("document_id", result.DocumentID),
				slog.String("error", err.Error()))
		}
		// Cosine distance spans [0,2]; keep the reported score in [0,1].
		if result.Similarity < 0 {
			result.Similarity = 0
		} else if result.Similarity > 1 {
			result.Similarity = 1
		}
		result.MatchKind = matchKind
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading search rows: %v", rag_type.ErrStorageFailure, err)
	}
	return results, nil
}
