package llm_service

import (
	"context"

	"github.com/finsighthq/finsight/rag_type"
)

// LLMService is the seam for the chat completion provider. The answer
// synthesizer only ever talks to this interface; swapping providers must
// not touch callers.
type LLMService interface {
	Call(ctx context.Context, system string, history []rag_type.ChatTurn, prompt string) (string, error)
}
