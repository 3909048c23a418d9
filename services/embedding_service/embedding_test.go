package embedding_service_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/embedding_service"
)

func TestMockEmbedderIsDeterministic(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "quarterly revenue summary")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "quarterly revenue summary")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMockEmbedderDimension(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()

	vec, err := embedder.Embed(context.Background(), "some text")
	require.NoError(t, err)

	assert.Equal(t, embedder.Dimension(), len(vec))
	assert.Equal(t, 384, embedder.Dimension())
}

func TestMockEmbedderProducesUnitVectors(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()

	vec, err := embedder.Embed(context.Background(), "normalize me")
	require.NoError(t, err)

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedderStrategy(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()
	assert.Equal(t, "mock:charcode", embedder.Strategy())
}

func TestMockEmbedderBatchPreservesOrder(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()
	ctx := context.Background()

	texts := []string{"first chunk", "second chunk", "third chunk"}
	batch, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch vector %d should match the single embedding", i)
	}
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	embedder := embedding_service.NewMockEmbedder()

	vec, err := embedder.Embed(context.Background(), "identical input")
	require.NoError(t, err)

	sim, err := embedding_service.CosineSimilarity(vec, vec)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-5)
}

func TestCosineSimilarityIsSymmetric(t *testing.T) {
	a := []float32{0.5, 0.1, 0.9}
	b := []float32{0.2, 0.8, 0.3}

	ab, err := embedding_service.CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := embedding_service.CosineSimilarity(b, a)
	require.NoError(t, err)

	assert.InDelta(t, ab, ba, 1e-9)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	sim, err := embedding_service.CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}

	_, err := embedding_service.CosineSimilarity(a, b)
	assert.ErrorIs(t, err, rag_type.ErrDegenerateVector)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := embedding_service.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}
