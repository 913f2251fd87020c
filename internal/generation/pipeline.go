package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scribe-api/internal/content"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// PipelineConfig holds configuration for the generation pipeline
type PipelineConfig struct {
	// Timeout bounds one full generation, draft and images included.
	// Zero disables the bound.
	Timeout time.Duration
}

// Pipeline produces complete blogs: a draft from the language model, a
// featured and a body image, and HTML enhanced with the backlink.
type Pipeline struct {
	drafts DraftGenerator
	images ImageGenerator
	config PipelineConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline creates a Pipeline. Both generators are required.
func NewPipeline(drafts DraftGenerator, images ImageGenerator, config PipelineConfig, log *slog.Logger) (*Pipeline, error) {
	if drafts == nil {
		return nil, fmt.Errorf("%w: draft generator cannot be nil", ErrInvalidConfig)
	}
	if images == nil {
		return nil, fmt.Errorf("%w: image generator cannot be nil", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		drafts: drafts,
		images: images,
		config: config,
		logger: log.With("component", "generation_pipeline"),
		now:    time.Now,
	}, nil
}

// Generate runs the full pipeline for req. The returned blog has no ID; the
// caller assigns the owning task's ID.
func (p *Pipeline) Generate(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("primary_keyword", req.PrimaryKeyword))

	draft, err := p.drafts.GenerateDraft(ctx, req)
	if err != nil {
		return nil, p.wrap(ctx, "draft", err)
	}
	if strings.TrimSpace(draft.HTML) == "" {
		return nil, fmt.Errorf("%w: draft html is empty", ErrInvalidResponse)
	}
	log.DebugContext(ctx, "draft generated", slog.Int("html_length", len(draft.HTML)))

	images, err := p.renderImages(ctx, req, draft)
	if err != nil {
		return nil, p.wrap(ctx, "images", err)
	}

	html, err := content.Enhance(draft.HTML, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	title := firstNonEmpty(draft.Title, req.BlogTitle, req.PrimaryKeyword)
	meta := draft.Meta
	meta.Title = firstNonEmpty(meta.Title, title)
	if len(meta.Keywords) == 0 {
		meta.Keywords = append([]string{req.PrimaryKeyword}, req.SecondaryKeywords...)
	}

	log.InfoContext(ctx, "blog generated", slog.String("title", title))

	return &domain.GeneratedBlog{
		Title:             title,
		HTML:              html,
		Meta:              meta,
		Images:            images,
		BacklinkURL:       req.BacklinkURL,
		PrimaryKeyword:    req.PrimaryKeyword,
		SecondaryKeywords: append([]string(nil), req.SecondaryKeywords...),
		Tone:              req.Tone,
		WordCount:         req.WordCount,
		CreatedAt:         p.now(),
	}, nil
}

// renderImages generates the featured and body images concurrently.
func (p *Pipeline) renderImages(ctx context.Context, req domain.BlogRequest, draft *Draft) (domain.BlogImages, error) {
	featuredPrompt := firstNonEmpty(draft.ImagePrompts.Featured,
		"Editorial hero image for a blog post about "+req.PrimaryKeyword)
	bodyPrompt := firstNonEmpty(draft.ImagePrompts.Body,
		"Illustration supporting an article about "+req.PrimaryKeyword)

	var featured, body *Image
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		featured, err = p.images.GenerateImage(gctx, featuredPrompt)
		return err
	})
	g.Go(func() (err error) {
		body, err = p.images.GenerateImage(gctx, bodyPrompt)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.BlogImages{}, err
	}
	if featured == nil || body == nil {
		return domain.BlogImages{}, fmt.Errorf("%w: image generator returned no image", ErrInvalidResponse)
	}

	return domain.BlogImages{
		Featured: domain.GeneratedImage{
			Data:   featured.DataURI(),
			Prompt: featuredPrompt,
			Alt:    firstNonEmpty(draft.Title, req.PrimaryKeyword),
		},
		Body: domain.GeneratedImage{
			Data:   body.DataURI(),
			Prompt: bodyPrompt,
			Alt:    req.PrimaryKeyword + " illustration",
		},
	}, nil
}

// wrap tags an error with its stage, preserving any package sentinel and
// reporting deadline overruns as transient failures.
func (p *Pipeline) wrap(ctx context.Context, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return fmt.Errorf("%w: %s timed out: %v", ErrTransientFailure, stage, err)
	}
	for _, sentinel := range []error{ErrInvalidResponse, ErrContentBlocked, ErrTransientFailure, ErrInvalidConfig, ErrGenerationFailed} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s: %w", stage, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrGenerationFailed, stage, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
