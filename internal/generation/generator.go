package generation

import (
	"context"
	"encoding/base64"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// ImagePrompts are the descriptions used to render a blog's two images.
type ImagePrompts struct {
	Featured string `json:"featured"`
	Body     string `json:"body"`
}

// Draft is the text portion of a blog as returned by the language model.
type Draft struct {
	Title        string          `json:"title"`
	Meta         domain.BlogMeta `json:"meta"`
	HTML         string          `json:"html"`
	ImagePrompts ImagePrompts    `json:"imagePrompts"`
}

// Image is raw image data returned by an image model.
type Image struct {
	Bytes    []byte
	MIMEType string
}

// DataURI encodes the image as a base64 data URI.
func (i *Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Bytes)
}

// DraftGenerator writes the text of a blog for a request.
// This interface is the boundary between the pipeline and the language model.
type DraftGenerator interface {
	// GenerateDraft returns the draft or an error wrapping one of the package
	// sentinels (see errors.go).
	GenerateDraft(ctx context.Context, req domain.BlogRequest) (*Draft, error)
}

// ImageGenerator renders one image from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}
