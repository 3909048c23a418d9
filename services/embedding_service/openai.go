package embedding_service

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finsighthq/finsight/rag_type"
)

// Bounded fan-out for batch embedding calls.
const maxConcurrentEmbeddings = 10

// OpenAIEmbedder generates embeddings through the OpenAI API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
	logger *slog.Logger
}

func NewOpenAIEmbedder(apiKey, model string, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is empty", rag_type.ErrProviderUnavailable)
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	dim := 1536
	if model == string(openai.LargeEmbedding3) {
		dim = 3072
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    dim,
		logger: logger,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned from API")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	l2normalize(vec)

	return vec, nil
}

// EmbedBatch embeds all texts with bounded concurrent fan-out. Output
// order matches input order regardless of completion order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	errChan := make(chan error, len(texts))
	sem := make(chan struct{}, maxConcurrentEmbeddings)

	for i := range texts {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()

			vec, err := e.Embed(ctx, texts[idx])
			if err != nil {
				errChan <- fmt.Errorf("embedding text %d: %w", idx, err)
				return
			}
			embeddings[idx] = vec
			errChan <- nil
		}(i)
	}

	var firstErr error
	for i := 0; i < len(texts); i++ {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

func (e *OpenAIEmbedder) Strategy() string {
	return "openai:" + e.model
}
