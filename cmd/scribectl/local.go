package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
	"github.com/phrazzld/scribe-api/internal/events"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/platform/brandbooster"
	"github.com/phrazzld/scribe-api/internal/platform/gemini"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/platform/semrush"
	"github.com/phrazzld/scribe-api/internal/service"
	"github.com/phrazzld/scribe-api/internal/store"
	"github.com/phrazzld/scribe-api/internal/task"
)

// cliLogLevel keeps structured logs out of the way of the progress bar
// unless the config asks for debug output.
const cliLogLevel = "warn"

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newCLILogger(cfg *config.Config) *slog.Logger {
	level := cliLogLevel
	if cfg.Server.LogLevel == "debug" {
		level = "debug"
	}
	return logger.New(os.Stderr, level)
}

// newLocalBatchService wires an in-memory batch service the same way the
// server does. Task events go to emitter.
func newLocalBatchService(
	cfg *config.Config,
	models gemini.Models,
	emitter events.EventEmitter,
	log *slog.Logger,
) (*service.BatchService, error) {
	drafts, err := gemini.NewDraftGenerator(models, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft generator: %w", err)
	}
	images, err := gemini.NewImageGenerator(models, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}
	pipeline, err := generation.NewPipeline(
		drafts,
		images,
		generation.PipelineConfig{Timeout: cfg.Batch.GenerationTimeout},
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation pipeline: %w", err)
	}

	blogs := store.NewMemoryBlogStore()
	sink, err := service.NewBlogSink(blogs, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create blog sink: %w", err)
	}
	runner, err := task.NewRunner(
		task.NewRegistry(emitter, log),
		pipeline,
		sink,
		task.RunnerConfig{DefaultConcurrency: cfg.Batch.MaxParallel},
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch runner: %w", err)
	}
	return service.NewBatchService(runner, blogs, service.Config{MaxParallel: cfg.Batch.MaxParallel}, log)
}

func newLocalBrandService(cfg *config.Config, models gemini.Models, log *slog.Logger) (*brand.Service, error) {
	namer, err := gemini.NewBrandNamer(models, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand namer: %w", err)
	}
	counter, err := brandbooster.NewClient(cfg.BrandAds, nil, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand ads client: %w", err)
	}
	return brand.NewService(namer, counter, brand.DefaultCacheTTL, log)
}

func newLocalDomainService(cfg *config.Config, models gemini.Models, log *slog.Logger) (*domainmetrics.Service, error) {
	brands, err := newLocalBrandService(cfg, models, log)
	if err != nil {
		return nil, err
	}
	provider, err := semrush.NewClient(cfg.DomainMetrics, nil, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create domain metrics client: %w", err)
	}
	return domainmetrics.NewService(provider, brands, domainmetrics.Config{
		Provider:        semrush.ProviderName,
		Parallel:        cfg.DomainMetrics.Parallel,
		RequestInterval: cfg.DomainMetrics.RequestInterval,
	}, log)
}

// modelsFactory builds the Gemini client shared by every command.
var modelsFactory = func(ctx context.Context, cfg config.LLMConfig) (gemini.Models, error) {
	return gemini.NewModels(ctx, cfg)
}
