package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// ImageGenerator implements generation.ImageGenerator using a Gemini image model.
type ImageGenerator struct {
	models Models
	model  string
	retry  retryPolicy
	logger *slog.Logger
}

var _ generation.ImageGenerator = (*ImageGenerator)(nil)

// NewImageGenerator creates an ImageGenerator for cfg.ImageModelName.
func NewImageGenerator(models Models, cfg config.LLMConfig, log *slog.Logger) (*ImageGenerator, error) {
	if models == nil {
		return nil, ErrNilModels
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ImageModelName == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	log = log.With("component", "gemini_image_generator")
	return &ImageGenerator{
		models: models,
		model:  cfg.ImageModelName,
		retry:  newRetryPolicy(context.Background(), log, cfg.MaxRetries, cfg.RetryDelaySeconds),
		logger: log,
	}, nil
}

// GenerateImage renders one image for prompt.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*generation.Image, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, ErrEmptyPrompt)
	}
	log := logger.FromContextOrDefault(ctx, g.logger)

	return callWithRetry(ctx, log, g.retry, "generate_image",
		func(ctx context.Context) (*generation.Image, error) {
			resp, err := g.models.GenerateImages(ctx, g.model, prompt, nil)
			if err != nil {
				return nil, err
			}
			if resp == nil || len(resp.GeneratedImages) == 0 {
				return nil, fmt.Errorf("%w: no image generated", generation.ErrInvalidResponse)
			}
			img := resp.GeneratedImages[0].Image
			if img == nil || len(img.ImageBytes) == 0 {
				return nil, fmt.Errorf("%w: image has no data", generation.ErrInvalidResponse)
			}
			return &generation.Image{Bytes: img.ImageBytes, MIMEType: img.MIMEType}, nil
		})
}
