package retrieval_service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/finsighthq/finsight/rag_type"
	"github.com/finsighthq/finsight/services/embedding_service"
)

const (
	DefaultLimit = 5

	// Score assigned to lexical-only matches. This is ranking policy,
	// not a calibrated probability: it just has to sort keyword hits
	// below genuine semantic matches.
	DefaultLexicalScore = 0.5

	// Tokens this short carry too little signal for substring matching.
	minTokenLength = 4

	DefaultBranchTimeout = 10 * time.Second
)

// SearchStore is the slice of the store the engine needs.
type SearchStore interface {
	SemanticSearch(ctx context.Context, embedding []float32, limit int, strategy string) ([]rag_type.SearchResult, error)
	LexicalSearch(ctx context.Context, tokens []string, limit int) ([]rag_type.SearchResult, error)
}

// Engine runs hybrid retrieval: a semantic vector branch and a lexical
// keyword branch execute concurrently, then merge. Either branch may fail
// without failing the search.
type Engine struct {
	store         SearchStore
	embedder      embedding_service.Embedder
	lexicalScore  float64
	branchTimeout time.Duration
	logger        *slog.Logger
}

func NewEngine(store SearchStore, embedder embedding_service.Embedder, lexicalScore float64, branchTimeout time.Duration, logger *slog.Logger) *Engine {
	if lexicalScore <= 0 || lexicalScore > 1 {
		lexicalScore = DefaultLexicalScore
	}
	if branchTimeout <= 0 {
		branchTimeout = DefaultBranchTimeout
	}
	return &Engine{
		store:         store,
		embedder:      embedder,
		lexicalScore:  lexicalScore,
		branchTimeout: branchTimeout,
		logger:        logger,
	}
}

// Search returns at most limit results, ranked by similarity descending.
// Results are deduplicated on (document id, content); semantic matches
// win ties because they are merged first.
func (e *Engine) Search(ctx context.Context, query string, limit int) []rag_type.SearchResult {
	if limit <= 0 {
		limit = DefaultLimit
	}
	branchLimit := (limit + 1) / 2

	var semantic, lexical []rag_type.SearchResult
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		semantic = e.semanticBranch(ctx, query, branchLimit)
	}()
	go func() {
		defer wg.Done()
		lexical = e.lexicalBranch(ctx, query, branchLimit)
	}()
	wg.Wait()

	merged := append(semantic, lexical...)
	deduped := dedupe(merged)

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Similarity > deduped[j].Similarity
	})

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

func (e *Engine) semanticBranch(ctx context.Context, query string, limit int) []rag_type.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("Semantic branch failed to embed query",
			slog.String("error", err.Error()))
		return nil
	}

	results, err := e.store.SemanticSearch(ctx, embedding, limit, e.embedder.Strategy())
	if err != nil {
		e.logger.Warn("Semantic branch search failed",
			slog.String("error", err.Error()))
		return nil
	}
	return results
}

func (e *Engine) lexicalBranch(ctx context.Context, query string, limit int) []rag_type.SearchResult {
	tokens := QueryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	results, err := e.store.LexicalSearch(ctx, tokens, limit)
	if err != nil {
		e.logger.Warn("Lexical branch search failed",
			slog.String("error", err.Error()))
		return nil
	}

	for i := range results {
		results[i].Similarity = e.lexicalScore
		results[i].MatchKind = rag_type.MatchLexical
	}
	return results
}

// QueryTokens extracts the lowercase search tokens from a query, keeping
// only words long enough to be discriminative.
func QueryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(token) >= minTokenLength {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func dedupe(results []rag_type.SearchResult) []rag_type.SearchResult {
	seen := make(map[string]struct{}, len(results))
	unique := make([]rag_type.SearchResult, 0, len(results))
	for _, result := range results {
		key := result.DocumentID + "\x00" + result.Content
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, result)
	}
	return unique
}
