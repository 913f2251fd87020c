package gemini

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"google.golang.org/genai"

	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

const defaultDraftTemplate = "prompts/blog_draft.tmpl"

var templateFuncs = template.FuncMap{"join": strings.Join}

// DraftGenerator implements generation.DraftGenerator using a Gemini text model.
type DraftGenerator struct {
	models Models
	model  string
	tmpl   *template.Template
	retry  retryPolicy
	logger *slog.Logger
}

var _ generation.DraftGenerator = (*DraftGenerator)(nil)

// NewDraftGenerator creates a DraftGenerator. The prompt template is read from
// cfg.PromptTemplatePath when set, otherwise the built-in template is used.
func NewDraftGenerator(models Models, cfg config.LLMConfig, log *slog.Logger) (*DraftGenerator, error) {
	if models == nil {
		return nil, ErrNilModels
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	tmpl, err := loadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	log = log.With("component", "gemini_draft_generator")
	return &DraftGenerator{
		models: models,
		model:  cfg.ModelName,
		tmpl:   tmpl,
		retry:  newRetryPolicy(context.Background(), log, cfg.MaxRetries, cfg.RetryDelaySeconds),
		logger: log,
	}, nil
}

func loadTemplate(path string) (*template.Template, error) {
	var (
		name string
		body []byte
		err  error
	)
	if path != "" {
		name = path
		body, err = os.ReadFile(path)
	} else {
		name = defaultDraftTemplate
		body, err = promptFS.ReadFile(defaultDraftTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, name, err)
	}

	tmpl, err := template.New("blog_draft").Funcs(templateFuncs).Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// createPrompt renders the prompt template for req.
func (g *DraftGenerator) createPrompt(ctx context.Context, req domain.BlogRequest) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	prompt := strings.TrimSpace(buf.String())
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	g.logger.DebugContext(ctx, "Prompt generated successfully", "prompt_length", len(prompt))
	return prompt, nil
}

// GenerateDraft asks the text model for a JSON draft of req.
func (g *DraftGenerator) GenerateDraft(ctx context.Context, req domain.BlogRequest) (*generation.Draft, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	prompt, err := g.createPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	temperature := float32(0.7)
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}

	draft, err := callWithRetry(ctx, log, g.retry, "generate_draft",
		func(ctx context.Context) (*generation.Draft, error) {
			resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
			if err != nil {
				return nil, err
			}
			text, err := responseText(resp)
			if err != nil {
				return nil, err
			}
			return parseDraft(text)
		})
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Gemini draft generated",
		"title", draft.Title,
		"html_length", len(draft.HTML))
	return draft, nil
}
