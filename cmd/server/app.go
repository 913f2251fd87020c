package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
	"github.com/phrazzld/scribe-api/internal/events"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/brandbooster"
	"github.com/phrazzld/scribe-api/internal/platform/gemini"
	"github.com/phrazzld/scribe-api/internal/platform/semrush"
	"github.com/phrazzld/scribe-api/internal/ratelimit"
	"github.com/phrazzld/scribe-api/internal/redact"
	"github.com/phrazzld/scribe-api/internal/service"
	"github.com/phrazzld/scribe-api/internal/store"
	"github.com/phrazzld/scribe-api/internal/task"
)

// application holds the shared dependencies so they can be wired once and
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Storage
	db    *sql.DB
	blogs store.BlogStore

	// Rate limiting
	redis   *redis.Client
	limiter ratelimit.Limiter

	// Services
	metrics      *metrics.Metrics
	batchService *service.BatchService
	brands       *brand.Service
	domains      *domainmetrics.Service
}

// newApplication wires every dependency from cfg. models overrides the Gemini
// client when non-nil.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	models gemini.Models,
) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	var err error
	app.blogs, app.db, err = setupBlogStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if models == nil {
		models, err = gemini.NewModels(ctx, cfg.LLM)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
	}

	generator, err := setupGenerator(models, cfg, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	// Task lifecycle events drive the task metrics.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.Subscribe(app.metrics)

	sink, err := service.NewBlogSink(app.blogs, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create blog sink: %w", err)
	}
	runner, err := task.NewRunner(
		task.NewRegistry(emitter, logger),
		generator,
		sink,
		task.RunnerConfig{DefaultConcurrency: cfg.Batch.MaxParallel},
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create batch runner: %w", err)
	}

	app.batchService, err = service.NewBatchService(
		runner,
		app.blogs,
		service.Config{MaxParallel: cfg.Batch.MaxParallel},
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create batch service: %w", err)
	}

	app.brands, err = setupBrandService(models, cfg, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.domains, err = setupDomainMetrics(cfg.DomainMetrics, app.brands, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.limiter, app.redis, err = setupLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func setupGenerator(models gemini.Models, cfg *config.Config, logger *slog.Logger) (task.Generator, error) {
	drafts, err := gemini.NewDraftGenerator(models, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft generator: %w", err)
	}
	images, err := gemini.NewImageGenerator(models, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}
	pipeline, err := generation.NewPipeline(
		drafts,
		images,
		generation.PipelineConfig{Timeout: cfg.Batch.GenerationTimeout},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation pipeline: %w", err)
	}
	logger.Info("LLM generator initialized successfully",
		slog.String("model", cfg.LLM.ModelName),
		slog.String("image_model", cfg.LLM.ImageModelName))
	return pipeline, nil
}

func setupBrandService(models gemini.Models, cfg *config.Config, logger *slog.Logger) (*brand.Service, error) {
	namer, err := gemini.NewBrandNamer(models, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand namer: %w", err)
	}
	counter, err := brandbooster.NewClient(cfg.BrandAds, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand ads client: %w", err)
	}
	svc, err := brand.NewService(namer, counter, brand.DefaultCacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand service: %w", err)
	}
	return svc, nil
}

func setupDomainMetrics(
	cfg config.DomainMetricsConfig,
	brands *brand.Service,
	logger *slog.Logger,
) (*domainmetrics.Service, error) {
	provider, err := semrush.NewClient(cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create domain metrics client: %w", err)
	}
	svc, err := domainmetrics.NewService(provider, brands, domainmetrics.Config{
		Provider:        semrush.ProviderName,
		Parallel:        cfg.Parallel,
		RequestInterval: cfg.RequestInterval,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create domain metrics service: %w", err)
	}
	return svc, nil
}

// setupLimiter keeps buckets in Redis when an address is configured so limits
// hold across replicas, and in process memory otherwise.
func setupLimiter(
	ctx context.Context,
	cfg config.RateLimitConfig,
	logger *slog.Logger,
) (ratelimit.Limiter, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info("Rate limiting with in-memory buckets",
			slog.Int("requests_per_minute", cfg.RequestsPerMinute),
			slog.Int("burst", cfg.Burst))
		return ratelimit.NewMemoryLimiter(), nil, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %s", redact.Error(err))
	}

	logger.Info("Rate limiting with redis buckets",
		slog.Int("requests_per_minute", cfg.RequestsPerMinute),
		slog.Int("burst", cfg.Burst))
	return ratelimit.NewTokenBucketLimiter(rdb), rdb, nil
}

// cleanup releases storage and cache connections.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
