package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"

	"github.com/croptap/rag-core/llm"
	"github.com/croptap/rag-core/prompts"
	"github.com/croptap/rag-core/retrieval"
)

// sourceExcerptLen bounds the per-source excerpt returned to callers.
const sourceExcerptLen = 200

const thresholdFallbackAnswer = "I couldn't find sufficiently relevant information to answer your question. " +
	"Could you try rephrasing or ask about a specific crop or farming topic?"

const backendDownAnswer = "The answer service is currently unreachable. " +
	"Please ensure the language model backend is running and try again."

// Source is a caller-facing citation: a truncated excerpt with provenance
// and relevance score.
type Source struct {
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	Category string  `json:"category"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// Answer is the full response envelope for a RAG query.
type Answer struct {
	Answer             string   `json:"answer"`
	Sources            []Source `json:"sources"`
	Question           string   `json:"question"`
	CategoryFilter     string   `json:"category_filter,omitempty"`
	DocumentsRetrieved int      `json:"documents_retrieved"`
	ThresholdUsed      float64  `json:"threshold_used,omitempty"`
}

// Generator orchestrates the RAG pipeline: retrieve, build prompt, call
// the completion service, attach sources. Safe for concurrent use.
type Generator struct {
	llmClient   llm.LLMClient
	retriever   *retrieval.Retriever
	temperature float64
	maxTokens   int
}

func NewGenerator(llmClient llm.LLMClient, retriever *retrieval.Retriever, temperature float64, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{
		llmClient:   llmClient,
		retriever:   retriever,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Answer generates a grounded answer for a question. Retrieval returning
// nothing does not stop generation: the no-context prompt still produces
// an LLM answer, degrading gracefully instead of hard-stopping.
func (g *Generator) Answer(ctx context.Context, question, category string, topK int) (*Answer, error) {
	logger.Info("processing question", zap.String("question", truncate(question, 100)))

	retrieved, err := g.retriever.Search(ctx, question, topK, category)
	if err != nil {
		return nil, err
	}

	answer, err := g.generate(ctx, question, retrieved)
	if err != nil {
		return nil, err
	}

	result := &Answer{
		Answer:             answer,
		Sources:            formatSources(retrieved),
		Question:           question,
		CategoryFilter:     category,
		DocumentsRetrieved: len(retrieved),
	}

	logger.Info("generated answer", zap.Int("sources", len(result.Sources)))
	return result, nil
}

// AnswerWithThreshold only uses documents whose score clears threshold.
// When none do, it short-circuits with a fixed fallback answer and never
// calls the completion service.
func (g *Generator) AnswerWithThreshold(ctx context.Context, question string, threshold float64, category string, topK int) (*Answer, error) {
	if topK <= 0 {
		topK = 10
	}

	retrieved, err := g.retriever.SearchWithThreshold(ctx, question, threshold, topK, category)
	if err != nil {
		return nil, err
	}

	if len(retrieved) == 0 {
		return &Answer{
			Answer:             thresholdFallbackAnswer,
			Sources:            []Source{},
			Question:           question,
			CategoryFilter:     category,
			DocumentsRetrieved: 0,
			ThresholdUsed:      threshold,
		}, nil
	}

	answer, err := g.generate(ctx, question, retrieved)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:             answer,
		Sources:            formatSources(retrieved),
		Question:           question,
		CategoryFilter:     category,
		DocumentsRetrieved: len(retrieved),
		ThresholdUsed:      threshold,
	}, nil
}

// IsReady reports whether both the completion backend and the vector
// store collection are available. Called by health checks, not requests.
func (g *Generator) IsReady(ctx context.Context) bool {
	return g.LLMConfigured(ctx) && g.retriever.Ready(ctx)
}

// LLMConfigured reports reachability of the completion backend alone.
func (g *Generator) LLMConfigured(ctx context.Context) bool {
	return g.llmClient.IsConfigured(ctx)
}

// generate builds the prompt and runs the completion. A backend that is
// down yields a readable degraded answer, not a failed request.
func (g *Generator) generate(ctx context.Context, question string, retrieved []retrieval.Result) (string, error) {
	messages, err := prompts.BuildMessages(question, retrieved, true)
	if err != nil {
		return "", err
	}

	var response strings.Builder
	err = g.llmClient.GenerateInference(ctx, messages,
		func(chunk string) error {
			response.WriteString(chunk)
			return nil
		},
		llm.WithTemperature(g.temperature),
		llm.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		if errors.Is(err, llm.ErrBackendUnavailable) {
			return backendDownAnswer, nil
		}
		return "Error generating response: " + err.Error(), nil
	}

	return response.String(), nil
}

func formatSources(retrieved []retrieval.Result) []Source {
	sources := make([]Source, 0, len(retrieved))
	for _, doc := range retrieved {
		sources = append(sources, Source{
			Content:  truncate(doc.Content, sourceExcerptLen),
			Source:   doc.Source,
			Category: doc.Category,
			Filename: doc.Filename,
			Score:    doc.Score,
		})
	}
	return sources
}

// truncate cuts s to at most n bytes, never splitting a multi-byte rune,
// and marks the cut with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
