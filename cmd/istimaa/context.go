package main

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/cache"
	"github.com/istimaa-app/istimaa/internal/captions"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/generation"
	"github.com/istimaa-app/istimaa/internal/lesson"
	"github.com/istimaa-app/istimaa/internal/media"
	"github.com/istimaa-app/istimaa/internal/transcription"
	"github.com/istimaa-app/istimaa/pkg/config"
	"github.com/istimaa-app/istimaa/pkg/llm"
)

// commandContext lazily shares config, logger and wiring across commands
type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *zap.Logger {
	c.loggerOnce.Do(func() {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// openCache opens the configured transcript cache. The caller owns Close.
func (c *commandContext) openCache() (cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Path == "" {
		return cache.NewMemoryStore(cfg.Cache.Retention), nil
	}
	return cache.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.Retention, c.ensureLogger())
}

// buildPipeline wires a local lesson pipeline without persistence. The
// returned cache store must be closed by the caller.
func (c *commandContext) buildPipeline() (*lesson.Pipeline, *generation.QuotaManager, cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := c.ensureLogger()

	store, err := c.openCache()
	if err != nil {
		return nil, nil, nil, err
	}

	captionSource := captions.NewYouTubeSource(cfg.Captions, logger)
	preparer := audio.NewPreparer(cfg.Audio, logger)

	var engine transcription.Engine
	switch cfg.Recognizer.Engine {
	case "assemblyai":
		engine = transcription.NewAssemblyAIEngine(cfg.Recognizer)
	default:
		engine = transcription.NewWhisperEngine(cfg.Recognizer)
	}
	recognizer := transcription.NewRecognizer(engine, cfg.Recognizer, logger)

	var audioFetch transcription.AudioStreamProvider
	if cfg.Media.Enabled {
		audioFetch = media.NewFetcher(cfg.Media, logger)
	}

	orchestrator := transcription.NewOrchestrator(
		store, captionSource, audioFetch, preparer, recognizer, logger)

	pool, limits := c.buildProviders(cfg)
	quota := generation.NewQuotaManager(
		generation.NewFileQuotaStore(cfg.Providers.QuotaPath), limits, logger)
	genClient := generation.NewClient(pool, quota, logger)

	pipeline := lesson.NewPipeline(
		orchestrator,
		lesson.NewAnalyzer(genClient, logger),
		lesson.NewQuestionGenerator(genClient, logger),
		nil, nil, logger)

	return pipeline, quota, store, nil
}

func (c *commandContext) buildProviders(cfg *config.Config) (*generation.Pool, map[string]int) {
	timeout := time.Duration(cfg.Providers.Timeout) * time.Second
	limits := make(map[string]int)
	var providers []generation.Provider

	add := func(id string, pc config.LLMProvider, client llm.Client) {
		if pc.APIKey == "" {
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
	}

	add("google", cfg.Providers.Google, llm.NewGoogleClient(cfg.Providers.Google, timeout))
	add("groq", cfg.Providers.Groq, llm.NewGroqClient(cfg.Providers.Groq, timeout))
	add("openrouter", cfg.Providers.OpenRouter, llm.NewOpenRouterClient(cfg.Providers.OpenRouter, timeout))

	return generation.NewPool(providers...), limits
}
