package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Embedder converts text into fixed-length vectors. Implementations must be
// safe for concurrent use and must map empty input to a zero vector instead
// of calling the model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch is order-preserving: result[i] is the vector for texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// OllamaEmbedder generates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	client     *api.Client
	model      string
	dimensions int
}

func NewOllamaEmbedder(client *api.Client, model string, dimensions int) *OllamaEmbedder {
	return &OllamaEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dimensions), nil
	}

	req := &api.EmbeddingRequest{
		Model:     e.model,
		Prompt:    text,
		KeepAlive: &api.Duration{Duration: 60 * time.Minute}, // keep model loaded between calls
	}
	resp, err := e.client.Embeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	emb64 := resp.Embedding
	if len(emb64) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: model returned %d, configured %d", len(emb64), e.dimensions)
	}

	emb32 := make([]float32, len(emb64))
	for i, v := range emb64 {
		emb32[i] = float32(v)
	}
	return emb32, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = emb
	}
	return out, nil
}
