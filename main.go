package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/finsighthq/finsight/config"
	"github.com/finsighthq/finsight/db"
	"github.com/finsighthq/finsight/handlers"
	"github.com/finsighthq/finsight/logging"
	"github.com/finsighthq/finsight/maintenance"
	"github.com/finsighthq/finsight/server"
	"github.com/finsighthq/finsight/services/answer_service"
	"github.com/finsighthq/finsight/services/chunk_service"
	"github.com/finsighthq/finsight/services/embedding_service"
	"github.com/finsighthq/finsight/services/extraction_service"
	"github.com/finsighthq/finsight/services/ingestion_service"
	"github.com/finsighthq/finsight/services/llm_service"
	"github.com/finsighthq/finsight/services/retrieval_service"
	"github.com/finsighthq/finsight/store"
)

func main() {
	cfg := config.Load()

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	embedder, llm := initProviders(cfg, logger)

	if err := db.Migrate(ctx, pool, embedder.Dimension()); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	if err := db.EnsureVectorIndex(ctx, pool, logger); err != nil {
		logger.Warn("Vector index maintenance failed",
			slog.String("error", err.Error()))
	}
	maintainer := maintenance.NewIndexMaintainer(pool, cfg.MaintenanceInterval, logger)
	go maintainer.Start(ctx)

	documentStore := store.New(pool, logger)
	extractor := extraction_service.NewDocumentExtractor(logger)
	chunker := chunk_service.New(chunk_service.DefaultMaxChunkSize, chunk_service.DefaultOverlap)
	orchestrator := ingestion_service.NewOrchestrator(documentStore, extractor, chunker, embedder, cfg.MaxUploadBytes, logger)
	engine := retrieval_service.NewEngine(documentStore, embedder, cfg.LexicalScore, cfg.BranchTimeout, logger)
	synthesizer := answer_service.NewSynthesizer(llm, logger)

	r := server.SetupRoutes(server.Handlers{
		Upload:   handlers.NewUploadHandler(orchestrator, cfg.MaxUploadBytes, logger),
		Chat:     handlers.NewChatHandler(engine, synthesizer, cfg.SearchLimit, logger),
		Document: handlers.NewDocumentHandler(documentStore, orchestrator, synthesizer, logger),
		Health:   handlers.NewHealthHandler(documentStore),
	})
	n := setupNegroni(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, server.Config{
			Domains:      cfg.Domains,
			CertCacheDir: cfg.CertCacheDir,
			HTTPPort:     cfg.HTTPPort,
			HTTPSPort:    cfg.HTTPSPort,
		})
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		}
		logger.Info("Starting server", slog.String("addr", srv.Addr))
		server.ServeDevelopment(srv)
	}
}

// initProviders selects the embedding and chat providers. Without an API
// key the pipeline runs on the deterministic mock embedder and the local
// answer fallback, clearly logged as degraded mode.
func initProviders(cfg config.Config, logger *slog.Logger) (embedding_service.Embedder, llm_service.LLMService) {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set: using mock embeddings and local answer fallback")
		return embedding_service.NewMockEmbedder(), nil
	}

	embedder, err := embedding_service.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, logger)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	llm, err := llm_service.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ChatModel, logger)
	if err != nil {
		log.Fatalf("Failed to initialize chat provider: %v", err)
	}
	return embedder, llm
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}

func initLogger() (*slog.Logger, error) {
	logDir := filepath.Join("logs", "finsight")

	fileHandler, err := logging.NewDailyFileHandler(logDir, "finsight", &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	if err != nil {
		return nil, err
	}

	return slog.New(fileHandler), nil
}
