package embedding_service

import (
	"context"
	"fmt"
)

const mockDimension = 384

// MockEmbedder is the named fallback strategy used when no provider is
// configured: a deterministic character-code vector, normalized to unit
// length. It preserves nothing semantic, but it is stable across runs,
// which is all the development path needs. Chunks it produces are tagged
// with its strategy so they are never ranked against provider vectors.
type MockEmbedder struct{}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, mockDimension)
	for i := 0; i < len(text) && i < mockDimension; i++ {
		vec[i] = float32(int(text[i])%256) / 255
	}
	l2normalize(vec)
	return vec, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimension() int {
	return mockDimension
}

func (e *MockEmbedder) Strategy() string {
	return "mock:charcode"
}
