package answer_service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/llm_service"
)

// InsufficientContextMessage is returned verbatim whenever retrieval came
// back empty. Answers are never fabricated without grounding.
const InsufficientContextMessage = "I don't have enough information in the uploaded documents to answer your question. " +
	"Please try uploading relevant documents or rephrasing your question."

// Answer modes. Fallback answers come from local pattern extraction and
// must be distinguishable from LLM-backed ones.
const (
	ModeLLM       = "llm"
	ModeFallback  = "fallback"
	ModeNoContext = "no_context"
)

const (
	maxContextChars = 6000
	excerptLength   = 150
	maxSummaryInput = 8000
)

var (
	revenuePattern = regexp.MustCompile(`(?i)revenue[^\n]*\$?[\d,]+`)
	costPattern    = regexp.MustCompile(`(?i)cost[^\n]*\$?[\d,]+`)
)

// Answer is a synthesized response with its grounding citations.
type Answer struct {
	Text    string            `json:"answer"`
	Mode    string            `json:"mode"`
	Sources []rag_type.Source `json:"sources,omitempty"`
}

// Synthesizer composes grounded answers from retrieved chunks. With no
// LLM configured it falls back to local pattern extraction, clearly
// marked as degraded output.
type Synthesizer struct {
	llm    llm_service.LLMService
	logger *slog.Logger
}

// NewSynthesizer accepts a nil llm, which selects the fallback path.
func NewSynthesizer(llm llm_service.LLMService, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		llm:    llm,
		logger: logger,
	}
}

func (s *Synthesizer) Answer(ctx context.Context, query string, results []rag_type.SearchResult, history []rag_type.ChatTurn) (*Answer, error) {
	if len(results) == 0 {
		return &Answer{
			Text: InsufficientContextMessage,
			Mode: ModeNoContext,
		}, nil
	}

	sources := collectSources(results)

	if s.llm == nil {
		return s.fallbackAnswer(query, results, sources), nil
	}

	system := fmt.Sprintf(`You are a document question answering assistant. Answer the user's question strictly from the context below. If the context does not contain the answer, say that the uploaded documents do not cover it. Do not use outside knowledge.

Context:
%s`, buildContext(results, maxContextChars))

	text, err := s.llm.Call(ctx, system, history, query)
	if err != nil {
		s.logger.Error("LLM call failed",
			slog.String("error", err.Error()))
		return nil, err
	}

	return &Answer{
		Text:    text + "\n\n" + formatSourceList(sources),
		Mode:    ModeLLM,
		Sources: sources,
	}, nil
}

// fallbackAnswer extracts matching fragments from the retrieved context
// without any model call. It only recognizes a few financial patterns and
// otherwise surfaces the most relevant sentences.
func (s *Synthesizer) fallbackAnswer(query string, results []rag_type.SearchResult, sources []rag_type.Source) *Answer {
	contextText := buildContext(results, maxContextChars)
	body := extractRelevantFragments(query, contextText)

	text := fmt.Sprintf(`Based on the uploaded documents, here's what I found:

%s

%s

Note: this response was assembled directly from the document content because no language model is configured.`,
		body, formatSourceList(sources))

	return &Answer{
		Text:    text,
		Mode:    ModeFallback,
		Sources: sources,
	}
}

func extractRelevantFragments(query, contextText string) string {
	lowerQuery := strings.ToLower(query)

	if strings.Contains(lowerQuery, "revenue") || strings.Contains(lowerQuery, "income") {
		if matches := revenuePattern.FindAllString(contextText, -1); len(matches) > 0 {
			return "I found revenue information: " + strings.Join(matches, ", ")
		}
	}

	if strings.Contains(lowerQuery, "cost") || strings.Contains(lowerQuery, "expense") {
		if matches := costPattern.FindAllString(contextText, -1); len(matches) > 0 {
			return "I found cost information: " + strings.Join(matches, ", ")
		}
	}

	words := strings.Fields(lowerQuery)
	sentences := regexp.MustCompile(`[.!?]+`).Split(contextText, -1)
	relevant := make([]string, 0, 3)
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, word := range words {
			if len(word) > 3 && strings.Contains(lower, word) {
				relevant = append(relevant, strings.TrimSpace(sentence))
				break
			}
		}
		if len(relevant) == 3 {
			break
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, ". ")
	}

	if len(contextText) > 200 {
		return contextText[:200] + "..."
	}
	return contextText
}

// Summarize produces a short summary of a document's normalized text.
// Requires a configured LLM.
func (s *Synthesizer) Summarize(ctx context.Context, text string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: summarization needs a chat model", rag_type.ErrProviderUnavailable)
	}
	if len(text) > maxSummaryInput {
		text = text[:maxSummaryInput]
	}

	system := "You are an expert document summarizer. Create a concise summary of the given text in 200 words or less."
	return s.llm.Call(ctx, system, nil, "Summarize this document: "+text)
}

func buildContext(results []rag_type.SearchResult, maxChars int) string {
	var b strings.Builder
	for _, result := range results {
		if b.Len() > 0 {
			if b.Len()+len(result.Content)+2 > maxChars {
				break
			}
			b.WriteString("\n\n")
		} else if len(result.Content) > maxChars {
			b.WriteString(result.Content[:maxChars])
			break
		}
		b.WriteString(result.Content)
	}
	return b.String()
}

// collectSources keeps one citation per document, in ranked order.
func collectSources(results []rag_type.SearchResult) []rag_type.Source {
	seen := make(map[string]struct{}, len(results))
	sources := make([]rag_type.Source, 0, len(results))
	for _, result := range results {
		if _, ok := seen[result.DocumentID]; ok {
			continue
		}
		seen[result.DocumentID] = struct{}{}

		excerpt := result.Content
		if len(excerpt) > excerptLength {
			excerpt = excerpt[:excerptLength] + "..."
		}
		sources = append(sources, rag_type.Source{
			DocumentID: result.DocumentID,
			Filename:   result.Filename,
			Excerpt:    excerpt,
		})
	}
	return sources
}

func formatSourceList(sources []rag_type.Source) string {
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, "This information was found in the following documents:")
	for _, source := range sources {
		lines = append(lines, "• "+source.Filename)
	}
	return strings.Join(lines, "\n")
}
