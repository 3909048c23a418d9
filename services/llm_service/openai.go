package llm_service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finsighthq/finsight/rag_type"
)

// OpenAIService calls the OpenAI chat completion API with a small retry
// loop. Quota exhaustion is surfaced immediately; other failures are
// retried a few times before being reported as retryable.
type OpenAIService struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIService(apiKey, model string, logger *slog.Logger) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is empty", rag_type.ErrProviderUnavailable)
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}, nil
}

func (s *OpenAIService) Call(ctx context.Context, system string, history []rag_type.ChatTurn, prompt string) (string, error) {
	maxRetries := 3
	retryDelay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		response, err := s.callOpenAI(ctx, system, history, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			s.logger.Error("OpenAI API quota exceeded",
				slog.String("model", s.model),
				slog.String("error_message", apiErr.Message))
			return "", fmt.Errorf("OpenAI quota exceeded: %s", apiErr.Message)
		}

		if attempt == maxRetries {
			break
		}

		s.logger.Warn("Chat completion attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", retryDelay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	s.logger.Error("Error calling OpenAI API after multiple attempts",
		slog.Int("attempts", maxRetries),
		slog.String("model", s.model),
		slog.String("error", lastErr.Error()))
	return "", fmt.Errorf("failed to call OpenAI API after %d attempts: %w", maxRetries, lastErr)
}

func (s *OpenAIService) callOpenAI(ctx context.Context, system string, history []rag_type.ChatTurn, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI API")
	}

	return resp.Choices[0].Message.Content, nil
}
