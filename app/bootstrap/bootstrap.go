package bootstrap

import (
	"log"

	"github.com/auditguard/embedding-go/app/controllers"
	"github.com/auditguard/embedding-go/internal/config"
	"github.com/auditguard/embedding-go/internal/database"
	"github.com/auditguard/embedding-go/internal/kafka"
	"github.com/auditguard/embedding-go/internal/knowledge"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/auditguard/embedding-go/internal/services"
	"github.com/auditguard/embedding-go/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger, database connections and the service
// context required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.GetConfig()

	app := &App{}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		logger.Sync()
		return nil
	})

	// Postgres (with pgvector extension and schema migration).
	if _, err := database.InitDB(); err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, database.CloseDB)

	// Redis (optional, used by the rate limiter).
	if cfg.Redis.Enabled {
		if _, err := database.InitRedis(); err != nil {
			logger.Warn("Redis unavailable, rate limiting falls back to in-process windows", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)
		}
	}

	// Kafka producer for document lifecycle events (optional).
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Kafka unavailable, document events disabled", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, kafka.Close)
		}
	}

	// Object storage for fetching raw document text by key (optional).
	if cfg.Storage.Enabled {
		if _, err := storage.InitObjectStore(); err != nil {
			logger.Warn("Object storage unavailable, raw_text must be supplied inline", zap.Error(err))
		}
	}

	// Domain services.
	embedder := knowledge.NewOpenAIEmbedder(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxParallel,
	)
	embeddingService := knowledge.NewEmbeddingService(
		embedder,
		cfg.Embedding.Model,
		cfg.Cache.Enabled,
		cfg.Cache.Capacity,
		cfg.Embedding.MaxBatchSize,
	)
	chunker := knowledge.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapSentences)
	tagger := knowledge.NewTagger()
	vectorService := services.NewVectorService(database.DB)
	pipelineService := services.NewPipelineService(chunker, tagger, embeddingService, vectorService)
	adminService := services.NewAdminService(vectorService, pipelineService)

	controllers.InitServiceContext(&controllers.ServiceContext{
		Embedding: embeddingService,
		Pipeline:  pipelineService,
		Store:     vectorService,
		Admin:     adminService,
	})

	logger.Info("Bootstrap completed",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache_enabled", cfg.Cache.Enabled))

	return app, nil
}

// Shutdown flushes logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}
}
