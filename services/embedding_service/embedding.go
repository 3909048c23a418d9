package embedding_service

import (
	"context"
	"fmt"
	"math"

	"github.com/finsighthq/finsight/rag_type"
)

// Embedder is the seam behind which the embedding provider lives. Real and
// mock strategies implement the same interface; the Strategy tag is stored
// with every chunk so vectors from different strategies are never compared.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Strategy() string
}

// CosineSimilarity returns dot(a,b)/(|a||b|) in [-1,1]. Zero-magnitude
// input is reported as ErrDegenerateVector instead of producing NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, rag_type.ErrDegenerateVector
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// l2normalize scales a vector to unit length in place. Zero vectors are
// left untouched.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
