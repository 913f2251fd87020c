package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBrandNamer_IdentifyBrandName(t *testing.T) {
	t.Parallel()
	models := &fakeModels{
		GenerateContentFn: func(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-test", model)
			assert.Nil(t, cfg)
			return textResponse("  Nike Running \n"), nil
		},
	}
	namer, err := NewBrandNamer(models, testLLMConfig(), discardLogger())
	require.NoError(t, err)

	name, err := namer.IdentifyBrandName(context.Background(), "https://nike.com")

	require.NoError(t, err)
	assert.Equal(t, "Nike Running", name)
	assert.Contains(t, models.lastPrompt(), "Website: https://nike.com")
	assert.Contains(t, models.lastPrompt(), "UNKNOWN")
}

func TestBrandNamer_EmptyURL(t *testing.T) {
	t.Parallel()
	namer, err := NewBrandNamer(&fakeModels{}, testLLMConfig(), discardLogger())
	require.NoError(t, err)

	_, err = namer.IdentifyBrandName(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestNewModels_RequiresAPIKey(t *testing.T) {
	t.Parallel()
	cfg := testLLMConfig()
	cfg.GeminiAPIKey = ""
	_, err := NewModels(context.Background(), cfg)
	assert.Error(t, err)
}
