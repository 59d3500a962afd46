package main

import (
	"context"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/croptap/rag-core/appconfig"
	apihttp "github.com/croptap/rag-core/api"
	"github.com/croptap/rag-core/embedding"
	"github.com/croptap/rag-core/ingestion"
	"github.com/croptap/rag-core/llm"
	"github.com/croptap/rag-core/retrieval"
	"github.com/croptap/rag-core/services"
	"github.com/croptap/rag-core/vectorstore"
)

func main() {
	dotenv.LoadEnv()

	ccfg := &appconfig.AppConfig{}
	if err := config.LoadConfig("config.ini", ccfg); err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	ccfg.WithDefaults()

	ollamaClient, err := provideOllamaClient(ccfg.OllamaHost)
	if err != nil {
		logger.Fatal("Failed to create Ollama client", zap.Error(err))
	}

	// Long-lived, stateless-per-call collaborators, constructed once and
	// shared across concurrent requests.
	chroma := vectorstore.NewChromaClient(ccfg.ChromaURL)
	embedder := embedding.NewOllamaEmbedder(ollamaClient, ccfg.EmbeddingModel, ccfg.EmbeddingDimensions)
	llmClient := llm.NewOpenAICompatClient(ccfg.LLMBaseURL, "", ccfg.LLMModel,
		time.Duration(ccfg.LLMTimeoutSeconds)*time.Second)

	retriever := retrieval.NewRetriever(chroma, embedder, ccfg.CollectionName, ccfg.DefaultTopK)
	generator := services.NewGenerator(llmClient, retriever, ccfg.LLMTemperature, ccfg.LLMMaxTokens)
	pipeline := ingestion.NewPipeline(chroma, embedder, ccfg.CollectionName,
		ccfg.ChunkSize, ccfg.ChunkOverlap, ccfg.IngestionBatchSize)

	handlers := apihttp.NewHandlers(generator, retriever, pipeline, ccfg.DataDir)
	server := apihttp.NewServer(handlers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, ccfg.HTTPPort); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}

func provideOllamaClient(host string) (*api.Client, error) {
	if host == "" {
		return api.ClientFromEnvironment()
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	return api.NewClient(base, http.DefaultClient), nil
}
