package chunk_service_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/chunk_service"
)

func TestSplitShortText(t *testing.T) {
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)

	text := "The quarterly report shows steady growth across every region this year."
	chunks := chunker.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitDiscardsShortFragments(t *testing.T) {
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)

	chunks := chunker.Split("Too short.")
	assert.Empty(t, chunks)
}

func TestSplitEmptyText(t *testing.T) {
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)

	assert.Empty(t, chunker.Split(""))
	assert.Empty(t, chunker.Split("   \n\t  "))
}

func TestSplitLongTextWithOverlap(t *testing.T) {
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)

	var b strings.Builder
	for i := 1; i <= 24; i++ {
		b.WriteString(fmt.Sprintf("segment %02d %s. ", i, strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 4))))
	}

	chunks := chunker.Split(b.String())

	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.GreaterOrEqual(t, len(chunk), chunk_service.MinChunkLength)
		assert.LessOrEqual(t, len(chunk), chunk_service.DefaultMaxChunkSize)
	}

	// Every chunk after the first starts with the trailing words of its
	// predecessor, aligned on word boundaries.
	overlapWords := chunk_service.DefaultOverlap / 10
	for i := 1; i < len(chunks); i++ {
		words := strings.Fields(chunks[i-1])
		require.Greater(t, len(words), overlapWords)
		seed := strings.Join(words[len(words)-overlapWords:], " ")
		assert.True(t, strings.HasPrefix(chunks[i], seed),
			"chunk %d should start with the overlap of chunk %d", i, i-1)
	}
}

func TestSplitReconstructsAllSentences(t *testing.T) {
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)

	sentences := make([]string, 0, 24)
	var b strings.Builder
	for i := 1; i <= 24; i++ {
		sentence := fmt.Sprintf("segment %02d %s", i, strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 4)))
		sentences = append(sentences, sentence)
		b.WriteString(sentence + ". ")
	}

	chunks := chunker.Split(b.String())
	require.Greater(t, len(chunks), 1)

	// Strip each chunk's overlap seed and stitch the remainders back
	// together: every input sentence must survive exactly once.
	overlapWords := chunk_service.DefaultOverlap / 10
	reconstructed := chunks[0]
	for i := 1; i < len(chunks); i++ {
		words := strings.Fields(chunks[i-1])
		require.Greater(t, len(words), overlapWords)
		seed := strings.Join(words[len(words)-overlapWords:], " ")
		remainder := strings.TrimSpace(strings.TrimPrefix(chunks[i], seed))
		reconstructed += " " + remainder
	}

	for _, sentence := range sentences {
		assert.Equal(t, 1, strings.Count(reconstructed, sentence),
			"sentence %q should appear exactly once after removing overlaps", sentence[:10])
	}
}

func TestSplitNeverCutsWords(t *testing.T) {
	chunker := chunk_service.New(200, 40)

	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("expenditure threshold consolidation frameworks overview. ")
	}

	chunks := chunker.Split(b.String())
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		for _, word := range strings.Fields(chunk) {
			trimmed := strings.TrimRight(word, ".")
			assert.Contains(t, []string{"expenditure", "threshold", "consolidation", "frameworks", "overview"}, trimmed)
		}
	}
}

func TestEnrichFinancialChunk(t *testing.T) {
	metadata := chunk_service.Enrich("Total revenue for the period reached $2.3 billion.")

	assert.True(t, metadata.HasFinancialTerms)
	assert.True(t, metadata.HasNumbers)
	assert.Equal(t, rag_type.ImportanceHigh, metadata.Importance)
	assert.Equal(t, 8, metadata.WordCount)
}

func TestEnrichNumericChunk(t *testing.T) {
	metadata := chunk_service.Enrich("The team shipped 14 releases in 3 quarters.")

	assert.False(t, metadata.HasFinancialTerms)
	assert.True(t, metadata.HasNumbers)
	assert.Equal(t, rag_type.ImportanceMedium, metadata.Importance)
}

func TestEnrichPlainChunk(t *testing.T) {
	metadata := chunk_service.Enrich("The committee met on a rainy afternoon.")

	assert.False(t, metadata.HasFinancialTerms)
	assert.False(t, metadata.HasNumbers)
	assert.Equal(t, rag_type.ImportanceLow, metadata.Importance)
}

func TestEnrichIsCaseInsensitiveForTerms(t *testing.T) {
	metadata := chunk_service.Enrich("REVENUE held steady.")

	assert.True(t, metadata.HasFinancialTerms)
	assert.Equal(t, rag_type.ImportanceHigh, metadata.Importance)
}
