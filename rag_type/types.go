package rag_type

import "time"

// Document processing statuses. Transitions are monotonic:
// queued -> processing -> completed | error. A document never reverts.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Chunk importance tiers.
const (
	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

// Match kinds reported on search results.
const (
	MatchSemantic = "semantic"
	MatchLexical  = "lexical"
)

// SheetTable holds the structured rows of one spreadsheet sheet, retained
// alongside the flattened text for consumers that want the original shape.
type SheetTable struct {
	SheetName string     `json:"sheet_name"`
	Rows      [][]string `json:"rows"`
}

// DocumentMetadata carries structural metadata collected during extraction.
// Fields are format dependent: Pages for PDF, SheetNames/Tables for
// spreadsheets, Title/Author when the source declares them.
type DocumentMetadata struct {
	Pages          int          `json:"pages,omitempty"`
	Title          string       `json:"title,omitempty"`
	Author         string       `json:"author,omitempty"`
	SheetNames     []string     `json:"sheet_names,omitempty"`
	SkippedSheets  []string     `json:"skipped_sheets,omitempty"`
	Tables         []SheetTable `json:"tables,omitempty"`
	WordCount      int          `json:"word_count,omitempty"`
	ContentPreview string       `json:"content_preview,omitempty"`
}

// ParsedContent is the output of the format normalizer: plain text plus
// whatever structural metadata the handler could recover.
type ParsedContent struct {
	Text     string
	Metadata DocumentMetadata
}

type Document struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	FileType    string           `json:"file_type"`
	FileSize    int64            `json:"file_size"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	UploadedAt  time.Time        `json:"uploaded_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	ChunkCount  int              `json:"chunk_count"`
	Metadata    DocumentMetadata `json:"metadata"`

	// Normalized text, kept to allow reprocessing without the original
	// file. Not part of API responses.
	Content string `json:"-"`
}

// ChunkMetadata is the enrichment computed for every chunk at ingestion
// time. EmbeddingStrategy tags which embedder produced the vector so that
// vectors from different strategies are never compared against each other.
type ChunkMetadata struct {
	WordCount         int    `json:"word_count"`
	HasNumbers        bool   `json:"has_numbers"`
	HasFinancialTerms bool   `json:"has_financial_terms"`
	Importance        string `json:"importance"`
	EmbeddingStrategy string `json:"embedding_strategy"`
}

// Chunk is the atomic unit of retrieval. Chunks are immutable once
// persisted; reprocessing a document replaces all of its chunks.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Index      int           `json:"chunk_index"`
	Embedding  []float32     `json:"-"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// SearchResult joins a chunk with its parent document for ranking and
// citation. It is a transient projection, never persisted.
type SearchResult struct {
	DocumentID string        `json:"document_id"`
	Filename   string        `json:"filename"`
	FileType   string        `json:"file_type"`
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
	MatchKind  string        `json:"match_kind"`
}

// Source is a citation attached to an answer.
type Source struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Excerpt    string `json:"excerpt,omitempty"`
	Page       int    `json:"page,omitempty"`
}

// ChatTurn is one entry of the append-only conversation history.
type ChatTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
}
