package db

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the documents and document_chunks tables if they do not
// exist. The embedding column dimension is fixed by the active embedding
// strategy, so switching strategies requires reprocessing the corpus.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id uuid PRIMARY KEY,
			filename text NOT NULL,
			file_type text NOT NULL,
			file_size bigint NOT NULL DEFAULT 0,
			status text NOT NULL DEFAULT 'queued',
			error text,
			uploaded_at timestamptz NOT NULL DEFAULT now(),
			processed_at timestamptz,
			chunk_count integer NOT NULL DEFAULT 0,
			content text NOT NULL DEFAULT '',
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id uuid PRIMARY KEY,
			document_id uuid NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content text NOT NULL,
			chunk_index integer NOT NULL,
			embedding vector(%d),
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
			UNIQUE (document_id, chunk_index)
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document_id ON document_chunks (document_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}

	return nil
}

// EnsureVectorIndex creates or rebuilds the ivfflat index over chunk
// embeddings. The list count follows the usual sqrt(n) heuristic with a
// floor of 100, and the index is only rebuilt when the stored list count
// drifts far from the optimum.
func EnsureVectorIndex(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var currentLists int
	err := pool.QueryRow(ctx, `
		SELECT reloptions[1]::text::int
		FROM pg_class c
		LEFT JOIN pg_index i ON c.oid = i.indexrelid
		WHERE c.relname = 'idx_document_chunks_embedding'
		AND reloptions IS NOT NULL
	`).Scan(&currentLists)

	if err != nil {
		// Index doesn't exist yet
		return rebuildVectorIndex(ctx, pool, logger)
	}

	optimal, count, err := optimalLists(ctx, pool)
	if err != nil {
		return err
	}

	if math.Abs(float64(currentLists-optimal)) > float64(optimal)*0.5 {
		logger.Info("Rebuilding vector index due to significant size change",
			slog.Int("current_lists", currentLists),
			slog.Int("optimal_lists", optimal),
			slog.Int("chunk_count", count))
		return rebuildVectorIndex(ctx, pool, logger)
	}

	return nil
}

func rebuildVectorIndex(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	lists, count, err := optimalLists(ctx, pool)
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, "DROP INDEX IF EXISTS idx_document_chunks_embedding"); err != nil {
		return fmt.Errorf("failed to drop existing index: %w", err)
	}

	createIndexSQL := fmt.Sprintf(`
		CREATE INDEX idx_document_chunks_embedding
		ON document_chunks
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)
	`, lists)

	if _, err := pool.Exec(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	logger.Info("Vector index created",
		slog.Int("chunk_count", count),
		slog.Int("list_count", lists))

	return nil
}

func optimalLists(ctx context.Context, pool *pgxpool.Pool) (lists, count int, err error) {
	if err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	lists = int(math.Sqrt(float64(count)))
	if lists < 100 {
		lists = 100
	}
	return lists, count, nil
}
