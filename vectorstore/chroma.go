package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ChromaClient talks to a ChromaDB server over its v1 REST API.
// Collections are created with L2 distance so that query distances satisfy
// the 1 - d/2 score mapping used by the retriever.
type ChromaClient struct {
	baseURL string
	client  *http.Client

	mu  sync.Mutex
	ids map[string]string // collection name -> chroma collection id
}

func NewChromaClient(url string) *ChromaClient {
	return &ChromaClient{
		baseURL: strings.TrimRight(url, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		ids:     make(map[string]string),
	}
}

type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func (c *ChromaClient) CreateCollection(ctx context.Context, name string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["hnsw:space"] = "l2"

	req := map[string]any{
		"name":          name,
		"metadata":      metadata,
		"get_or_create": false,
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/api/v1/collections", req)
	if err != nil {
		return err
	}

	var col chromaCollection
	if err := json.Unmarshal(data, &col); err != nil {
		return fmt.Errorf("decode create collection response: %w", err)
	}

	c.mu.Lock()
	c.ids[name] = col.ID
	c.mu.Unlock()
	return nil
}

func (c *ChromaClient) DeleteCollection(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/collections/"+name, nil)

	c.mu.Lock()
	delete(c.ids, name)
	c.mu.Unlock()
	return err
}

func (c *ChromaClient) HasCollection(ctx context.Context, name string) (bool, error) {
	_, err := c.collectionID(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *ChromaClient) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(records))
	embeddings := make([][]float32, 0, len(records))
	documents := make([]string, 0, len(records))
	metadatas := make([]map[string]any, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
		embeddings = append(embeddings, r.Embedding)
		documents = append(documents, r.Document)
		metadatas = append(metadatas, r.Metadata)
	}

	req := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	_, err = c.doRequest(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", req)
	return err
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

func (c *ChromaClient) Query(ctx context.Context, collection string, embedding []float32, k int, where map[string]any) ([]Neighbor, error) {
	if k <= 0 {
		k = 10
	}
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(where) > 0 {
		req["where"] = where
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", req)
	if err != nil {
		return nil, err
	}

	var resp chromaQueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	neighbors := make([]Neighbor, 0, len(resp.IDs[0]))
	for i := range resp.IDs[0] {
		n := Neighbor{ID: resp.IDs[0][i]}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			n.Document = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			n.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			n.Distance = resp.Distances[0][i]
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, nil
}

func (c *ChromaClient) Count(ctx context.Context, collection string) (int, error) {
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return 0, err
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/collections/"+id+"/count", nil)
	if err != nil {
		return 0, err
	}

	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return count, nil
}

type chromaGetResponse struct {
	IDs       []string         `json:"ids"`
	Metadatas []map[string]any `json:"metadatas"`
}

func (c *ChromaClient) Peek(ctx context.Context, collection string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"limit":   limit,
		"include": []string{"metadatas"},
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/api/v1/collections/"+id+"/get", req)
	if err != nil {
		return nil, err
	}

	var resp chromaGetResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	return resp.Metadatas, nil
}

// collectionID resolves a collection name to its server-side id, caching
// the mapping. The cache entry is dropped on DeleteCollection so a rebuild
// re-resolves against the fresh collection.
func (c *ChromaClient) collectionID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if id, ok := c.ids[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/collections/"+name, nil)
	if err != nil {
		return "", err
	}

	var col chromaCollection
	if err := json.Unmarshal(data, &col); err != nil {
		return "", fmt.Errorf("decode collection response: %w", err)
	}
	if col.ID == "" {
		return "", ErrCollectionNotFound
	}

	c.mu.Lock()
	c.ids[name] = col.ID
	c.mu.Unlock()
	return col.ID, nil
}

func (c *ChromaClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chroma request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCollectionNotFound
	}
	// Older chroma versions report a missing collection as a 400/500 with a
	// "does not exist" message instead of a 404.
	if resp.StatusCode >= http.StatusBadRequest && strings.Contains(string(data), "does not exist") {
		return nil, ErrCollectionNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("chroma %s %s failed with status %d: %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}
