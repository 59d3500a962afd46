package api

// QueryRequest asks a question against the knowledge base. Threshold > 0
// switches to threshold-gated answering with a deterministic fallback.
type QueryRequest struct {
	Question  string  `json:"question"`
	Category  string  `json:"category,omitempty"`
	TopK      int     `json:"top_k,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// IngestRequest triggers a full ingestion run. DataDir overrides the
// configured document directory.
type IngestRequest struct {
	DataDir string `json:"data_dir,omitempty"`
}

// IngestResponse reports ingestion statistics.
type IngestResponse struct {
	DocumentsProcessed int            `json:"documents_processed"`
	ChunksCreated      int            `json:"chunks_created"`
	Errors             int            `json:"errors"`
	Categories         map[string]int `json:"categories"`
	Message            string         `json:"message"`
}

// HealthResponse reports component availability.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	LLMConfigured    bool   `json:"llm_configured"`
	VectorStoreReady bool   `json:"vector_store_ready"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
