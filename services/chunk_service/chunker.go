package chunk_service

import (
	"regexp"
	"strings"

	"github.com/finsighthq/finsight/rag_type"
)

const (
	DefaultMaxChunkSize = 1000
	DefaultOverlap      = 200

	// Chunks shorter than this after trimming carry no retrievable
	// signal and are dropped.
	MinChunkLength = 50
)

// Sentence boundaries are heuristic: splitting on terminal punctuation
// means abbreviations and decimal numbers may cause spurious splits.
// That is accepted behavior, not something to fix with NLP-grade
// sentence detection.
var sentencePattern = regexp.MustCompile(`[.!?]+`)

var digitPattern = regexp.MustCompile(`\d`)

// Fixed finance vocabulary used for the domain-keyword flag.
var financialTerms = []string{
	"revenue", "cost", "profit", "expense",
	"budget", "financial", "earnings", "income",
}

// Chunker splits normalized text into overlapping bounded-size chunks.
type Chunker struct {
	maxSize int
	overlap int
}

func New(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{
		maxSize: maxSize,
		overlap: overlap,
	}
}

// Split breaks text into chunks of at most maxSize characters. Sentences
// accumulate greedily; when one would overflow the current chunk, the
// chunk is closed and the next one is seeded with roughly overlap/10
// trailing words, aligned on word boundaries. Fragments shorter than
// MinChunkLength are discarded.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)

	chunks := make([]string, 0)
	current := ""

	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.maxSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))

			words := strings.Fields(current)
			overlapWords := c.overlap / 10
			if overlapWords > len(words) {
				overlapWords = len(words)
			}
			current = strings.Join(words[len(words)-overlapWords:], " ") + " "
		}

		current += sentence + ". "
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	kept := chunks[:0]
	for _, chunk := range chunks {
		if len(chunk) >= MinChunkLength {
			kept = append(kept, chunk)
		}
	}
	return kept
}

func splitSentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Enrich computes the derived metadata for one chunk. The importance tier
// follows a fixed rule: financial terms beat numbers beat everything else.
func Enrich(content string) rag_type.ChunkMetadata {
	lower := strings.ToLower(content)

	hasFinancialTerms := false
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			hasFinancialTerms = true
			break
		}
	}
	hasNumbers := digitPattern.MatchString(content)

	importance := rag_type.ImportanceLow
	switch {
	case hasFinancialTerms:
		importance = rag_type.ImportanceHigh
	case hasNumbers:
		importance = rag_type.ImportanceMedium
	}

	return rag_type.ChunkMetadata{
		WordCount:         len(strings.Fields(content)),
		HasNumbers:        hasNumbers,
		HasFinancialTerms: hasFinancialTerms,
		Importance:        importance,
	}
}
