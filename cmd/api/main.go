package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/istimaa-app/istimaa/internal/adapter/handler"
	"github.com/istimaa-app/istimaa/internal/adapter/repository"
	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/cache"
	"github.com/istimaa-app/istimaa/internal/captions"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/domain/repositories"
	"github.com/istimaa-app/istimaa/internal/generation"
	"github.com/istimaa-app/istimaa/internal/infrastructure/database"
	"github.com/istimaa-app/istimaa/internal/infrastructure/storage"
	"github.com/istimaa-app/istimaa/internal/lesson"
	"github.com/istimaa-app/istimaa/internal/media"
	"github.com/istimaa-app/istimaa/internal/transcription"
	"github.com/istimaa-app/istimaa/pkg/config"
	"github.com/istimaa-app/istimaa/pkg/llm"
	pkgvalidator "github.com/istimaa-app/istimaa/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize transcript cache
	log.Println("📦 Opening transcript cache...")
	var transcriptCache cache.Store
	if cfg.Cache.Path == "" {
		transcriptCache = cache.NewMemoryStore(cfg.Cache.Retention)
		log.Println("⚠️  Transcript cache running in-memory (no CACHE_PATH configured)")
	} else {
		sqliteStore, err := cache.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.Retention, logger)
		if err != nil {
			log.Fatalf("Failed to open transcript cache: %v", err)
		}
		transcriptCache = sqliteStore
	}
	defer transcriptCache.Close()

	// Initialize transcription components
	log.Println("🎙️  Initializing transcription pipeline...")
	captionSource := captions.NewYouTubeSource(cfg.Captions, logger)
	preparer := audio.NewPreparer(cfg.Audio, logger)

	var engine transcription.Engine
	switch cfg.Recognizer.Engine {
	case "assemblyai":
		engine = transcription.NewAssemblyAIEngine(cfg.Recognizer)
	default:
		engine = transcription.NewWhisperEngine(cfg.Recognizer)
	}
	log.Printf("✅ Recognizer engine: %s", engine.Name())

	recognizer := transcription.NewRecognizer(engine, cfg.Recognizer, logger)

	var audioFetch transcription.AudioStreamProvider
	if cfg.Media.Enabled {
		audioFetch = media.NewFetcher(cfg.Media, logger)
		log.Printf("✅ Media resolver: %s", cfg.Media.BaseURL)
	} else {
		log.Println("⚠️  Media resolver disabled; remote sources use captions or cache only")
	}

	orchestrator := transcription.NewOrchestrator(
		transcriptCache, captionSource, audioFetch, preparer, recognizer, logger)

	// Initialize generation providers
	log.Println("🤖 Initializing generation providers...")
	pool, limits := buildProviderPool(cfg, logger)

	var quotaStore generation.QuotaStore
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis for quota state...")
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		quotaStore = generation.NewRedisQuotaStore(redisClient, "istimaa:quota")
	} else {
		quotaStore = generation.NewFileQuotaStore(cfg.Providers.QuotaPath)
	}

	quota := generation.NewQuotaManager(quotaStore, limits, logger)
	genClient := generation.NewClient(pool, quota, logger)

	// Initialize lesson pipeline
	log.Println("📚 Initializing lesson pipeline...")
	analyzer := lesson.NewAnalyzer(genClient, logger)
	questions := lesson.NewQuestionGenerator(genClient, logger)
	lessonRepo := repository.NewLessonRepository(db)

	var audioStore lesson.AudioStore
	var handlerAudio handler.AudioStorage
	if cfg.Storage.Enabled {
		log.Println("📦 Connecting to object storage...")
		minioClient, err := storage.NewMinIOClient(cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		audioStore = minioClient
		handlerAudio = minioClient
	} else {
		log.Println("⚠️  Object storage disabled; lesson audio is not retained")
	}

	pipeline := lesson.NewPipeline(
		orchestrator, analyzer, questions,
		&lessonStore{repo: lessonRepo}, audioStore, logger)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	lessonHandler := handler.NewLessonHandler(pipeline, lessonRepo, handlerAudio, logger)
	cacheHandler := handler.NewCacheHandler(transcriptCache, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, lessonHandler, cacheHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// buildProviderPool wires every configured generation backend. Providers
// without an API key are skipped.
func buildProviderPool(cfg *config.Config, logger *zap.Logger) (*generation.Pool, map[string]int) {
	timeout := time.Duration(cfg.Providers.Timeout) * time.Second
	limits := make(map[string]int)
	var providers []generation.Provider

	add := func(id string, pc config.LLMProvider, client llm.Client) {
		if pc.APIKey == "" {
			log.Printf("⚠️  Provider %s not configured (missing API key)", id)
			return
		}
		providers = append(providers, generation.Provider{
			Descriptor: entities.ProviderDescriptor{
				ID:                       id,
				Model:                    pc.Model,
				DailyLimit:               pc.DailyLimit,
				RateLimitPerMinute:       pc.RateLimit,
				SupportsStructuredOutput: pc.SupportsJSON,
				Priority:                 pc.Priority,
			},
			Client: client,
		})
		limits[id] = pc.DailyLimit
		log.Printf("✅ Provider %s ready (model %s, priority %d)", id, pc.Model, pc.Priority)
	}

	add("google", cfg.Providers.Google, llm.NewGoogleClient(cfg.Providers.Google, timeout))
	add("groq", cfg.Providers.Groq, llm.NewGroqClient(cfg.Providers.Groq, timeout))
	add("openrouter", cfg.Providers.OpenRouter, llm.NewOpenRouterClient(cfg.Providers.OpenRouter, timeout))

	if len(providers) == 0 {
		logger.Warn("no generation providers configured; analysis and questions will degrade")
	}
	return generation.NewPool(providers...), limits
}

// lessonStore adapts the lesson repository to the pipeline persistence port
type lessonStore struct {
	repo repositories.LessonRepository
}

func (s *lessonStore) Save(ctx context.Context, l *entities.Lesson) error {
	return s.repo.Create(ctx, l)
}
