package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"go.uber.org/zap"

	"github.com/croptap/rag-core/embedding"
	"github.com/croptap/rag-core/retrieval"
	"github.com/croptap/rag-core/vectorstore"
)

// Summary reports the outcome of a full ingestion run. Errors counts
// documents that failed and were skipped; they never halt the run.
type Summary struct {
	DocumentsProcessed int            `json:"documents_processed"`
	ChunksCreated      int            `json:"chunks_created"`
	Errors             int            `json:"errors"`
	Categories         map[string]int `json:"categories"`
}

// AddResult reports an incremental single-document addition.
type AddResult struct {
	Filename    string `json:"filename"`
	ChunksAdded int    `json:"chunks_added"`
	Category    string `json:"category"`
}

// Pipeline orchestrates load -> clean -> chunk -> embed -> upsert. A full
// run rebuilds the collection from scratch; it must not run concurrently
// with another ingestion into the same collection.
type Pipeline struct {
	store        vectorstore.Store
	embedder     embedding.Embedder
	collection   string
	chunkSize    int
	chunkOverlap int
	batchSize    int
}

func NewPipeline(store vectorstore.Store, embedder embedding.Embedder, collection string, chunkSize, chunkOverlap, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{
		store:        store,
		embedder:     embedder,
		collection:   collection,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		batchSize:    batchSize,
	}
}

// Run executes a full ingestion pass: the target collection is dropped and
// recreated, every loaded document is cleaned and chunked (per-document
// failures are counted and skipped), then all chunks are embedded and
// upserted in batches with sequential chunk_N ids.
func (p *Pipeline) Run(ctx context.Context, loader Loader) (*Summary, error) {
	logger.Info("starting document ingestion", zap.String("collection", p.collection))

	// Drop any previous generation of the collection. Not-found is fine.
	if err := p.store.DeleteCollection(ctx, p.collection); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		logger.Info("delete collection", zap.Error(err))
	}
	if err := p.store.CreateCollection(ctx, p.collection, map[string]any{
		"description": "CropTAP agricultural documents",
	}); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	summary := &Summary{Categories: make(map[string]int)}

	var allChunks []Chunk
	for _, doc := range docs {
		chunks, err := p.processDocument(doc)
		if err != nil {
			logger.Error("error processing document",
				zap.String("filename", doc.Filename), zap.Error(err))
			summary.Errors++
			continue
		}

		allChunks = append(allChunks, chunks...)
		summary.DocumentsProcessed++
		summary.Categories[doc.Category]++

		if summary.DocumentsProcessed%50 == 0 {
			logger.Info("ingestion progress", zap.Int("documents", summary.DocumentsProcessed))
		}
	}

	summary.ChunksCreated = len(allChunks)
	logger.Info("chunking complete",
		zap.Int("chunks", len(allChunks)),
		zap.Int("documents", summary.DocumentsProcessed))

	if err := p.embedAndStore(ctx, allChunks, 0); err != nil {
		return nil, err
	}

	logger.Info("ingestion complete",
		zap.Int("documents", summary.DocumentsProcessed),
		zap.Int("chunks", summary.ChunksCreated),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// AddDocument embeds and upserts a single document into the existing
// collection, continuing the id sequence from the current row count. It
// fails if the collection has not been created by a full run yet.
func (p *Pipeline) AddDocument(ctx context.Context, doc Document) (*AddResult, error) {
	ok, err := p.store.HasCollection(ctx, p.collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist, run full ingestion first: %w",
			p.collection, vectorstore.ErrCollectionNotFound)
	}

	chunks, err := p.processDocument(doc)
	if err != nil {
		return nil, err
	}

	offset, err := p.store.Count(ctx, p.collection)
	if err != nil {
		return nil, fmt.Errorf("count collection: %w", err)
	}

	if err := p.embedAndStore(ctx, chunks, offset); err != nil {
		return nil, err
	}

	logger.Info("added document",
		zap.String("filename", doc.Filename), zap.Int("chunks", len(chunks)))
	return &AddResult{
		Filename:    doc.Filename,
		ChunksAdded: len(chunks),
		Category:    doc.Category,
	}, nil
}

// processDocument cleans and chunks one document. An out-of-enumeration
// category is a data error, rejected here rather than stored silently.
func (p *Pipeline) processDocument(doc Document) ([]Chunk, error) {
	if !retrieval.ValidateCategory(doc.Category) {
		return nil, &retrieval.ErrInvalidCategory{Category: doc.Category}
	}

	doc.Text = CleanForEmbedding(CleanText(doc.Text))
	return ChunkWithMetadata(doc, p.chunkSize, p.chunkOverlap), nil
}

// embedAndStore embeds chunks in fixed-size batches and upserts them with
// deterministic chunk_{offset+i} ids.
func (p *Pipeline) embedAndStore(ctx context.Context, chunks []Chunk, offset int) error {
	dim := p.embedder.Dimensions()

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := linq.Map(batch, func(c Chunk) string { return c.Text })
		embeddings, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}

		records := make([]vectorstore.Record, len(batch))
		for i, chunk := range batch {
			if len(embeddings[i]) != dim {
				return fmt.Errorf("embedding dimension mismatch for %s chunk %d: got %d, want %d",
					chunk.Filename, chunk.ChunkIndex, len(embeddings[i]), dim)
			}
			records[i] = vectorstore.Record{
				ID:        fmt.Sprintf("chunk_%d", offset+start+i),
				Embedding: embeddings[i],
				Document:  chunk.Text,
				Metadata: map[string]any{
					"source":       chunk.Source,
					"category":     chunk.Category,
					"filename":     chunk.Filename,
					"chunk_index":  chunk.ChunkIndex,
					"total_chunks": chunk.TotalChunks,
				},
			}
		}

		if err := p.store.Upsert(ctx, p.collection, records); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}
	return nil
}
