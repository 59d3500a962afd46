package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"

	"github.com/croptap/rag-core/ingestion"
	"github.com/croptap/rag-core/retrieval"
	"github.com/croptap/rag-core/services"
	"github.com/croptap/rag-core/vectorstore"
)

// Handlers binds the HTTP endpoints to the core. DataDir is the default
// document directory for ingestion requests that do not override it.
type Handlers struct {
	generator *services.Generator
	retriever *retrieval.Retriever
	pipeline  *ingestion.Pipeline
	dataDir   string
}

func NewHandlers(generator *services.Generator, retriever *retrieval.Retriever, pipeline *ingestion.Pipeline, dataDir string) *Handlers {
	return &Handlers{
		generator: generator,
		retriever: retriever,
		pipeline:  pipeline,
		dataDir:   dataDir,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/search", h.handleSearch)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("POST /api/ingest", h.handleIngest)
	mux.HandleFunc("GET /api/categories", h.handleCategories)
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *Handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}
	if req.Category != "" && !retrieval.ValidateCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category", categoriesHint())
		return
	}

	var (
		answer *services.Answer
		err    error
	)
	if req.Threshold > 0 {
		answer, err = h.generator.AnswerWithThreshold(r.Context(), req.Question, req.Threshold, req.Category, req.TopK)
	} else {
		answer, err = h.generator.Answer(r.Context(), req.Question, req.Category, req.TopK)
	}
	if err != nil {
		logger.Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error processing query", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required", "")
		return
	}
	category := r.URL.Query().Get("category")
	if category != "" && !retrieval.ValidateCategory(category) {
		writeError(w, http.StatusBadRequest, "invalid category", categoriesHint())
		return
	}

	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top_k must be a positive integer", "")
			return
		}
		topK = n
	}

	results, err := h.retriever.Search(r.Context(), query, topK, category)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error searching", err.Error())
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":           query,
		"category_filter": category,
		"results":         results,
	})
}

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.retriever.CollectionStats(r.Context())
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			writeError(w, http.StatusServiceUnavailable, "no collection available", "run document ingestion first")
			return
		}
		logger.Error("stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error getting statistics", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	dataDir := req.DataDir
	if dataDir == "" {
		dataDir = h.dataDir
	}

	summary, err := h.pipeline.Run(r.Context(), ingestion.NewDirLoader(dataDir))
	if err != nil {
		logger.Error("ingestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error during ingestion", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		DocumentsProcessed: summary.DocumentsProcessed,
		ChunksCreated:      summary.ChunksCreated,
		Errors:             summary.Errors,
		Categories:         summary.Categories,
		Message:            "Ingestion completed successfully",
	})
}

func (h *Handlers) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":   retrieval.ValidCategories,
		"descriptions": retrieval.CategoryDescriptions(),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmOK := h.generator != nil && h.generator.LLMConfigured(r.Context())
	storeOK := h.retriever != nil && h.retriever.Ready(r.Context())

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Service:          "croptap-rag",
		LLMConfigured:    llmOK,
		VectorStoreReady: storeOK,
	})
}

func categoriesHint() string {
	hint := "valid options:"
	for _, c := range retrieval.ValidCategories {
		hint += " " + c
	}
	return hint
}
