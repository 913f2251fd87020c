package docx

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/domain"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sampleBlog(t *testing.T, title string) domain.GeneratedBlog {
	return domain.GeneratedBlog{
		ID:    uuid.New(),
		Title: title,
		HTML: `<h2>Why <em>beans</em> matter</h2>` +
			`<p>Fresh <strong>coffee</strong> &amp; tea.</p>` +
			`<ul><li>Grind</li><li>Brew<ol><li>Pour</li></ol></li></ul>`,
		Meta: domain.BlogMeta{Description: "All about coffee"},
		Images: domain.BlogImages{
			Featured: domain.GeneratedImage{Data: pngDataURI(t, 1600, 900), Alt: "hero <image>"},
			Body:     domain.GeneratedImage{Data: "not a data uri"},
		},
		PrimaryKeyword: "coffee",
	}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(body)
	}
	return files
}

func assertWellFormed(t *testing.T, name, body string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, "%s is not well-formed XML", name)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	data, err := Export([]domain.GeneratedBlog{sampleBlog(t, "First & Best"), sampleBlog(t, "Second")})
	require.NoError(t, err)

	files := readZip(t, data)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/styles.xml",
		"word/settings.xml",
		"word/_rels/document.xml.rels",
		"word/media/image1.png",
		"word/media/image2.png",
	} {
		require.Contains(t, files, name)
		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".rels") {
			assertWellFormed(t, name, files[name])
		}
	}
	assert.NotContains(t, files, "word/media/image3.png", "undecodable images are skipped")

	doc := files["word/document.xml"]
	assert.Contains(t, doc, DocumentTitle)
	assert.Contains(t, doc, `TOC \o "1-2"`)
	assert.Contains(t, doc, "First &amp; Best")
	assert.Contains(t, doc, "Second")
	assert.Contains(t, doc, "All about coffee")
	assert.Contains(t, doc, `<w:pStyle w:val="Heading2"/>`)
	assert.Contains(t, doc, "<w:b/>")
	assert.Contains(t, doc, "<w:i/>")
	assert.Contains(t, doc, "• ")
	assert.Contains(t, doc, "1. ")
	assert.Contains(t, doc, `w:left="1440"`, "nested list items are indented further")
	assert.Contains(t, doc, "hero &lt;image&gt;")
	// One break after the table of contents plus one between the two blogs.
	assert.Equal(t, 2, strings.Count(doc, `<w:br w:type="page"/>`))

	assert.Contains(t, files["[Content_Types].xml"], `Extension="png"`)
	assert.Contains(t, files["word/_rels/document.xml.rels"], "media/image1.png")
	assert.Contains(t, files["word/settings.xml"], "updateFields")
}

func TestExport_Empty(t *testing.T) {
	t.Parallel()

	_, err := Export(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestExport_FallsBackToKeywordTitle(t *testing.T) {
	t.Parallel()

	blog := domain.GeneratedBlog{ID: uuid.New(), HTML: "<p>body</p>", PrimaryKeyword: "gardening"}
	data, err := Export([]domain.GeneratedBlog{blog})
	require.NoError(t, err)

	doc := readZip(t, data)["word/document.xml"]
	assert.Contains(t, doc, "gardening")
	assert.Equal(t, 1, strings.Count(doc, `<w:br w:type="page"/>`))
}

func TestFilename(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "ai-multi-blogs-2026-03-04T05-06-07Z.docx", Filename(ts))
}

func TestConvertHTML(t *testing.T) {
	t.Parallel()

	paragraphs, err := convertHTML("loose <b>text</b><p>  one<br>two </p><div><h3>Deep</h3></div><blockquote>quoted</blockquote>")
	require.NoError(t, err)
	require.Len(t, paragraphs, 4)

	assert.Equal(t, []run{{text: "loose "}, {text: "text", bold: true}}, paragraphs[0].runs)
	assert.Equal(t, []run{{text: "one"}, {brk: true}, {text: "two"}}, paragraphs[1].runs)
	assert.Equal(t, styleHeading3, paragraphs[2].style)
	assert.Equal(t, styleQuote, paragraphs[3].style)
	assert.True(t, paragraphs[3].runs[0].italic)
}

func TestScaledExtent(t *testing.T) {
	t.Parallel()

	uri := pngDataURI(t, 100, 50)
	data, ext, err := decodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)

	w, h := scaledExtent(data)
	assert.Equal(t, int64(100*emuPerPixel), w)
	assert.Equal(t, int64(50*emuPerPixel), h)

	w, h = scaledExtent([]byte("garbage"))
	assert.Equal(t, int64(maxImageWidth), w)
	assert.Equal(t, int64(maxImageWidth*defaultAspect), h)
}
