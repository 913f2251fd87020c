package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

const brandNamePrompt = "You are a data enrichment assistant. " +
	"Given a company's primary website, respond with the brand name as it appears on Instagram, " +
	"including any regional qualifier the account uses. " +
	"Return only the display name text without the @ symbol, hashtags, quotes, or commentary. " +
	"If you cannot determine it confidently, respond with UNKNOWN.\n" +
	"Website: %s"

// BrandNamer asks a Gemini text model for a brand's Instagram display name.
type BrandNamer struct {
	models Models
	model  string
	retry  retryPolicy
	logger *slog.Logger
}

// NewBrandNamer creates a BrandNamer for cfg.ModelName.
func NewBrandNamer(models Models, cfg config.LLMConfig, log *slog.Logger) (*BrandNamer, error) {
	if models == nil {
		return nil, ErrNilModels
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	log = log.With("component", "gemini_brand_namer")
	return &BrandNamer{
		models: models,
		model:  cfg.ModelName,
		retry:  newRetryPolicy(context.Background(), log, cfg.MaxRetries, cfg.RetryDelaySeconds),
		logger: log,
	}, nil
}

// IdentifyBrandName returns the model's raw answer for websiteURL. Callers
// are expected to clean the answer and treat UNKNOWN as no match.
func (b *BrandNamer) IdentifyBrandName(ctx context.Context, websiteURL string) (string, error) {
	websiteURL = strings.TrimSpace(websiteURL)
	if websiteURL == "" {
		return "", ErrEmptyPrompt
	}
	log := logger.FromContextOrDefault(ctx, b.logger)
	prompt := fmt.Sprintf(brandNamePrompt, websiteURL)

	return callWithRetry(ctx, log, b.retry, "identify_brand_name",
		func(ctx context.Context) (string, error) {
			resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), nil)
			if err != nil {
				return "", err
			}
			return responseText(resp)
		})
}
