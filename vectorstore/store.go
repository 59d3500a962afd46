package vectorstore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound signals a "not yet ingested" condition. Callers on
// the query path treat it as empty results rather than a failure.
var ErrCollectionNotFound = errors.New("vectorstore: collection not found")

// Record is one indexed row: an embedded chunk with its provenance metadata.
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]any
}

// Neighbor is one nearest-neighbor hit. Distance is the store's raw L2
// distance; score conversion is the retriever's concern.
type Neighbor struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Store is the vector database capability the RAG core depends on.
// Implementations must be safe for concurrent use.
type Store interface {
	CreateCollection(ctx context.Context, name string, metadata map[string]any) error
	DeleteCollection(ctx context.Context, name string) error
	HasCollection(ctx context.Context, name string) (bool, error)

	Upsert(ctx context.Context, collection string, records []Record) error
	Query(ctx context.Context, collection string, embedding []float32, k int, where map[string]any) ([]Neighbor, error)
	Count(ctx context.Context, collection string) (int, error)

	// Peek returns the metadata of up to limit rows, for sample-based stats.
	Peek(ctx context.Context, collection string, limit int) ([]map[string]any, error)
}
