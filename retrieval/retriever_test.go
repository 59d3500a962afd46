package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptap/rag-core/vectorstore"
)

// fakeStore returns canned neighbors and records the arguments it was
// called with.
type fakeStore struct {
	neighbors []vectorstore.Neighbor
	queryErr  error
	countVal  int
	countErr  error
	peekMetas []map[string]any
	hasVal    bool
	hasErr    error

	lastK     int
	lastWhere map[string]any
}

func (f *fakeStore) CreateCollection(ctx context.Context, name string, metadata map[string]any) error {
	return nil
}

func (f *fakeStore) DeleteCollection(ctx context.Context, name string) error { return nil }

func (f *fakeStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return f.hasVal, f.hasErr
}

func (f *fakeStore) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	return nil
}

func (f *fakeStore) Query(ctx context.Context, collection string, embedding []float32, k int, where map[string]any) ([]vectorstore.Neighbor, error) {
	f.lastK = k
	f.lastWhere = where
	return f.neighbors, f.queryErr
}

func (f *fakeStore) Count(ctx context.Context, collection string) (int, error) {
	return f.countVal, f.countErr
}

func (f *fakeStore) Peek(ctx context.Context, collection string, limit int) ([]map[string]any, error) {
	if limit < len(f.peekMetas) {
		return f.peekMetas[:limit], nil
	}
	return f.peekMetas, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func neighbor(doc string, distance float64, meta map[string]any) vectorstore.Neighbor {
	return vectorstore.Neighbor{ID: doc, Document: doc, Metadata: meta, Distance: distance}
}

func TestScoreFromDistance(t *testing.T) {
	tests := []struct {
		distance float64
		score    float64
	}{
		{0, 1.0},
		{1, 0.5},
		{2, 0.0},
		{3, 0.0},   // clamped, never negative
		{0.5, 0.75},
		{0.33333, 0.8333},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.score, scoreFromDistance(tt.distance), 1e-9)
	}
}

func TestSearchMapsNeighborsToResults(t *testing.T) {
	store := &fakeStore{
		neighbors: []vectorstore.Neighbor{
			neighbor("best match", 0.2, map[string]any{
				"source":       "data/raw/soil_data/acidity.txt",
				"category":     "soil_data",
				"filename":     "acidity.txt",
				"chunk_index":  float64(0),
				"total_chunks": float64(3),
			}),
			neighbor("second match", 0.8, nil),
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	r := NewRetriever(store, embedder, "docs", 5)

	results, err := r.Search(context.Background(), "soil acidity", 2, "soil_data")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "best match", results[0].Content)
	assert.Equal(t, "soil_data", results[0].Category)
	assert.Equal(t, "acidity.txt", results[0].Filename)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, 3, results[0].TotalChunks)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)

	// Missing metadata falls back instead of failing.
	assert.Equal(t, "unknown", results[1].Source)
	assert.Equal(t, "uncategorized", results[1].Category)
	assert.Equal(t, 1, results[1].TotalChunks)
	assert.InDelta(t, 0.6, results[1].Score, 1e-9)

	assert.Equal(t, 2, store.lastK)
	assert.Equal(t, map[string]any{"category": map[string]any{"$eq": "soil_data"}}, store.lastWhere)
}

func TestSearchDefaultTopK(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 7)

	_, err := r.Search(context.Background(), "q", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 7, store.lastK)
}

func TestSearchInvalidCategory(t *testing.T) {
	r := NewRetriever(&fakeStore{}, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	_, err := r.Search(context.Background(), "q", 5, "not_a_category")
	var invalid *ErrInvalidCategory
	require.ErrorAs(t, err, &invalid)
}

func TestSearchMissingCollectionReturnsEmpty(t *testing.T) {
	store := &fakeStore{queryErr: vectorstore.ErrCollectionNotFound}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	results, err := r.Search(context.Background(), "q", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchStoreFailureReturnsEmpty(t *testing.T) {
	store := &fakeStore{queryErr: errors.New("connection refused")}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	results, err := r.Search(context.Background(), "q", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmbedFailurePropagates(t *testing.T) {
	r := NewRetriever(&fakeStore{}, &fakeEmbedder{err: errors.New("model not loaded")}, "docs", 5)

	_, err := r.Search(context.Background(), "q", 5, "")
	require.Error(t, err)
}

func TestSearchWithThresholdKeepsOrder(t *testing.T) {
	store := &fakeStore{
		neighbors: []vectorstore.Neighbor{
			neighbor("a", 0.2, nil), // score 0.9
			neighbor("b", 1.0, nil), // score 0.5
			neighbor("c", 0.4, nil), // score 0.8
		},
	}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	results, err := r.SearchWithThreshold(context.Background(), "q", 0.7, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Content)
	assert.Equal(t, "c", results[1].Content)
}

func TestCollectionStats(t *testing.T) {
	store := &fakeStore{
		countVal: 3,
		peekMetas: []map[string]any{
			{"category": "soil_data"},
			{"category": "soil_data"},
			{"category": "planting_tips"},
		},
	}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	stats, err := r.CollectionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, "docs", stats.CollectionName)
	assert.Equal(t, map[string]int{"soil_data": 2, "planting_tips": 1}, stats.CategoriesSample)
	assert.Equal(t, ValidCategories, stats.AvailableCategories)
}

func TestCollectionStatsMissingCollection(t *testing.T) {
	store := &fakeStore{countErr: vectorstore.ErrCollectionNotFound}
	r := NewRetriever(store, &fakeEmbedder{vector: []float32{1}}, "docs", 5)

	_, err := r.CollectionStats(context.Background())
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestReady(t *testing.T) {
	r := NewRetriever(&fakeStore{hasVal: true}, &fakeEmbedder{vector: []float32{1}}, "docs", 5)
	assert.True(t, r.Ready(context.Background()))

	r = NewRetriever(&fakeStore{hasVal: false}, &fakeEmbedder{vector: []float32{1}}, "docs", 5)
	assert.False(t, r.Ready(context.Background()))

	r = NewRetriever(&fakeStore{hasVal: true, hasErr: errors.New("down")}, &fakeEmbedder{vector: []float32{1}}, "docs", 5)
	assert.False(t, r.Ready(context.Background()))
}
