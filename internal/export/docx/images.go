package docx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register decoder for DecodeConfig
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"strings"
)

const (
	emuPerPixel = 9525
	// maxImageWidth is six inches, the printable width of a letter page.
	maxImageWidth = 6 * 914400
	// defaultAspect is used when the image header cannot be read.
	defaultAspect = 9.0 / 16.0
)

var extensionsByMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type media struct {
	relID     string
	name      string
	ext       string
	data      []byte
	widthEMU  int64
	heightEMU int64
	alt       string
	docPrID   int
}

// decodeDataURI splits a base64 data URI into its bytes and file extension.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data uri")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data uri has no payload")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, "", fmt.Errorf("unsupported data uri encoding %q", encoding)
	}
	ext, ok := extensionsByMIME[strings.ToLower(mimeType)]
	if !ok {
		return nil, "", fmt.Errorf("unsupported image type %q", mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image data is empty")
	}
	return data, ext, nil
}

// scaledExtent returns the drawing size in EMUs, fitted to the page width.
func scaledExtent(data []byte) (int64, int64) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return maxImageWidth, int64(maxImageWidth * defaultAspect)
	}
	w := int64(cfg.Width) * emuPerPixel
	h := int64(cfg.Height) * emuPerPixel
	if w > maxImageWidth {
		h = h * maxImageWidth / w
		w = maxImageWidth
	}
	return w, h
}
