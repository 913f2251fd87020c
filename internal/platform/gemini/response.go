package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/phrazzld/scribe-api/internal/generation"
)

// responseText extracts the text of the first candidate, mapping empty and
// blocked responses to generation sentinels.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}

// draftSchema is the JSON object the draft prompt asks for.
type draftSchema struct {
	Title string `json:"title"`
	Meta  struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	} `json:"meta"`
	HTML         string `json:"html"`
	ImagePrompts struct {
		Featured string `json:"featured"`
		Body     string `json:"body"`
	} `json:"imagePrompts"`
}

// parseDraft decodes a draft from model output, tolerating a surrounding
// markdown code fence.
func parseDraft(text string) (*generation.Draft, error) {
	text = stripCodeFence(text)

	var schema draftSchema
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(schema.HTML) == "" {
		return nil, fmt.Errorf("%w: draft is missing html", generation.ErrInvalidResponse)
	}

	draft := &generation.Draft{
		Title: strings.TrimSpace(schema.Title),
		HTML:  stripCodeFence(schema.HTML),
		ImagePrompts: generation.ImagePrompts{
			Featured: strings.TrimSpace(schema.ImagePrompts.Featured),
			Body:     strings.TrimSpace(schema.ImagePrompts.Body),
		},
	}
	draft.Meta.Title = strings.TrimSpace(schema.Meta.Title)
	draft.Meta.Description = strings.TrimSpace(schema.Meta.Description)
	for _, kw := range schema.Meta.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			draft.Meta.Keywords = append(draft.Meta.Keywords, kw)
		}
	}
	return draft, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
