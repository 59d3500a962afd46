package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

// AppConfig holds every tunable of the RAG service. Values come from
// config.ini with environment overrides, following go-api-boot conventions.
type AppConfig struct {
	config.BootConfig `ini:",extends"`

	// HTTP surface
	HTTPPort string `env:"HTTP-PORT" ini:"http_port"`

	// Vector store (ChromaDB)
	ChromaURL      string `env:"CHROMA-URL" ini:"chroma_url"`
	CollectionName string `env:"COLLECTION-NAME" ini:"collection_name"`

	// Embeddings (Ollama)
	OllamaHost          string `env:"OLLAMA-HOST" ini:"ollama_host"`
	EmbeddingModel      string `env:"EMBEDDING-MODEL" ini:"embedding_model"`
	EmbeddingDimensions int    `env:"EMBEDDING-DIMENSIONS" ini:"embedding_dimensions"`

	// Completion service (OpenAI-compatible endpoint, e.g. Ollama /v1)
	LLMBaseURL        string  `env:"LLM-BASE-URL" ini:"llm_base_url"`
	LLMModel          string  `env:"LLM-MODEL" ini:"llm_model"`
	LLMTemperature    float64 `env:"LLM-TEMPERATURE" ini:"llm_temperature"`
	LLMMaxTokens      int     `env:"LLM-MAX-TOKENS" ini:"llm_max_tokens"`
	LLMTimeoutSeconds int     `env:"LLM-TIMEOUT-SECONDS" ini:"llm_timeout_seconds"`

	// Chunking
	ChunkSize    int `env:"CHUNK-SIZE" ini:"chunk_size"`
	ChunkOverlap int `env:"CHUNK-OVERLAP" ini:"chunk_overlap"`

	// Retrieval
	DefaultTopK int `env:"DEFAULT-TOP-K" ini:"default_top_k"`

	// Ingestion
	DataDir            string `env:"DATA-DIR" ini:"data_dir"`
	IngestionBatchSize int    `env:"INGESTION-BATCH-SIZE" ini:"ingestion_batch_size"`
}

// WithDefaults fills zero-valued settings so a sparse config.ini still
// yields a runnable service.
func (c *AppConfig) WithDefaults() *AppConfig {
	if c.HTTPPort == "" {
		c.HTTPPort = ":8000"
	}
	if c.ChromaURL == "" {
		c.ChromaURL = "http://localhost:8001"
	}
	if c.CollectionName == "" {
		c.CollectionName = "croptap_docs"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "nomic-embed-text"
	}
	if c.EmbeddingDimensions == 0 {
		c.EmbeddingDimensions = 768
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "http://localhost:11434/v1"
	}
	if c.LLMModel == "" {
		c.LLMModel = "llama3.2"
	}
	if c.LLMTemperature == 0 {
		c.LLMTemperature = 0.1
	}
	if c.LLMMaxTokens == 0 {
		c.LLMMaxTokens = 1024
	}
	if c.LLMTimeoutSeconds == 0 {
		c.LLMTimeoutSeconds = 120
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
	if c.DefaultTopK == 0 {
		c.DefaultTopK = 5
	}
	if c.DataDir == "" {
		c.DataDir = "data/raw"
	}
	if c.IngestionBatchSize == 0 {
		c.IngestionBatchSize = 100
	}
	return c
}
