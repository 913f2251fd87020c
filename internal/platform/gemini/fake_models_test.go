package gemini

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/phrazzld/scribe-api/internal/config"
)

// fakeModels implements Models with function fields.
type fakeModels struct {
	mu      sync.Mutex
	prompts []string
	models  []string

	GenerateContentFn func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImagesFn  func(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.GenerateContentFn(ctx, model, contents, cfg)
}

func (f *fakeModels) GenerateImages(
	ctx context.Context,
	model string,
	prompt string,
	cfg *genai.GenerateImagesConfig,
) (*genai.GenerateImagesResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.GenerateImagesFn(ctx, model, prompt, cfg)
}

func (f *fakeModels) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

func (f *fakeModels) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "test-key",
		ModelName:         "gemini-test",
		ImageModelName:    "imagen-test",
		MaxRetries:        2,
		RetryDelaySeconds: 1,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
