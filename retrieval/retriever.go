package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"

	"github.com/croptap/rag-core/embedding"
	"github.com/croptap/rag-core/vectorstore"
)

// Result is one retrieved chunk, scored and annotated with provenance.
type Result struct {
	Content     string  `json:"content"`
	Source      string  `json:"source"`
	Category    string  `json:"category"`
	Filename    string  `json:"filename"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Score       float64 `json:"score"`
}

// Stats describes the collection. CategoriesSample is computed from a
// bounded sample of at most statsSampleLimit rows, so it is an estimate of
// the category distribution, not an exact count.
type Stats struct {
	TotalChunks         int            `json:"total_chunks"`
	CollectionName      string         `json:"collection_name"`
	CategoriesSample    map[string]int `json:"categories_sample"`
	AvailableCategories []string       `json:"available_categories"`
}

const statsSampleLimit = 1000

// Retriever embeds queries and runs filtered nearest-neighbor search over
// the vector store. Safe for concurrent use.
type Retriever struct {
	store       vectorstore.Store
	embedder    embedding.Embedder
	collection  string
	defaultTopK int
}

func NewRetriever(store vectorstore.Store, embedder embedding.Embedder, collection string, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Retriever{
		store:       store,
		embedder:    embedder,
		collection:  collection,
		defaultTopK: defaultTopK,
	}
}

// Search returns up to topK results ranked best-first. Vector-store
// failures and a missing collection degrade to an empty result set: a
// search that cannot reach its backend behaves like a search that found
// nothing.
func (r *Retriever) Search(ctx context.Context, query string, topK int, category string) ([]Result, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	where, err := BuildFilter(category, "", "")
	if err != nil {
		return nil, err
	}

	neighbors, err := r.store.Query(ctx, r.collection, queryEmbedding, topK, where)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.Info("collection not found, run document ingestion first",
				zap.String("collection", r.collection))
			return nil, nil
		}
		logger.Error("vector search failed", zap.Error(err))
		return nil, nil
	}

	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, Result{
			Content:     n.Document,
			Source:      metaString(n.Metadata, "source", "unknown"),
			Category:    metaString(n.Metadata, "category", "uncategorized"),
			Filename:    metaString(n.Metadata, "filename", "unknown"),
			ChunkIndex:  metaInt(n.Metadata, "chunk_index", 0),
			TotalChunks: metaInt(n.Metadata, "total_chunks", 1),
			Score:       scoreFromDistance(n.Distance),
		})
	}
	return results, nil
}

// SearchWithThreshold filters Search results to score >= threshold without
// altering their relative order.
func (r *Retriever) SearchWithThreshold(ctx context.Context, query string, threshold float64, maxResults int, category string) ([]Result, error) {
	results, err := r.Search(ctx, query, maxResults, category)
	if err != nil {
		return nil, err
	}

	filtered := make([]Result, 0, len(results))
	for _, res := range results {
		if res.Score >= threshold {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// CollectionStats reports chunk count and a sampled category distribution.
// Returns vectorstore.ErrCollectionNotFound until ingestion has run.
func (r *Retriever) CollectionStats(ctx context.Context) (*Stats, error) {
	count, err := r.store.Count(ctx, r.collection)
	if err != nil {
		return nil, err
	}

	sampleSize := count
	if sampleSize > statsSampleLimit {
		sampleSize = statsSampleLimit
	}

	categories := make(map[string]int)
	if sampleSize > 0 {
		metadatas, err := r.store.Peek(ctx, r.collection, sampleSize)
		if err != nil {
			return nil, err
		}
		for _, meta := range metadatas {
			categories[metaString(meta, "category", "unknown")]++
		}
	}

	return &Stats{
		TotalChunks:         count,
		CollectionName:      r.collection,
		CategoriesSample:    categories,
		AvailableCategories: ValidCategories,
	}, nil
}

// Ready reports whether the backing collection exists.
func (r *Retriever) Ready(ctx context.Context) bool {
	ok, err := r.store.HasCollection(ctx, r.collection)
	return err == nil && ok
}

// Collection returns the bound collection name.
func (r *Retriever) Collection() string {
	return r.collection
}

// scoreFromDistance maps an L2 distance to a [0,1] similarity score,
// rounded to 4 decimal places. Assumes normalized embeddings, where L2
// distance ranges roughly over [0,2]; the chroma client pins the
// collection to l2 space to keep this mapping valid.
func scoreFromDistance(d float64) float64 {
	score := 1 - d/2
	if score < 0 {
		score = 0
	}
	return math.Round(score*10000) / 10000
}

func metaString(meta map[string]any, key, fallback string) string {
	if meta == nil {
		return fallback
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return fallback
}

func metaInt(meta map[string]any, key string, fallback int) int {
	if meta == nil {
		return fallback
	}
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
