package llm_service

import (
	"context"

	"github.com/finsighthq/finsight/rag_type"
)

// MockLLMService returns canned responses, for tests and local runs.
type MockLLMService struct {
	Response string
	Err      error

	// Captured arguments of the last call.
	LastSystem  string
	LastHistory []rag_type.ChatTurn
	LastPrompt  string
}

func (m *MockLLMService) Call(ctx context.Context, system string, history []rag_type.ChatTurn, prompt string) (string, error) {
	m.LastSystem = system
	m.LastHistory = history
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
