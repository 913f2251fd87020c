package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// ErrNothingToExport is returned when Export is given no blogs.
var ErrNothingToExport = errors.New("no blogs to export")

// DocumentTitle is the cover heading of every export.
const DocumentTitle = "AI Multi-Blog Export"

// ContentType is the MIME type of the produced file.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relStyles   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relSettings = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
)

// Filename returns the attachment name for an export created at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("ai-multi-blogs-%s.docx", t.UTC().Format("2006-01-02T15-04-05Z"))
}

// Export renders blogs, in the given order, into a .docx file.
func Export(blogs []domain.GeneratedBlog) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, blogs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders blogs into w. Images that cannot be decoded are left out.
func Write(w io.Writer, blogs []domain.GeneratedBlog) error {
	if len(blogs) == 0 {
		return ErrNothingToExport
	}

	doc := &document{}
	doc.paragraph(paragraph{style: styleTitle, runs: []run{{text: DocumentTitle}}})
	doc.tableOfContents()

	for i, blog := range blogs {
		if i > 0 {
			doc.pageBreak()
		}
		if err := doc.blog(blog); err != nil {
			return fmt.Errorf("blog %q: %w", blog.Title, err)
		}
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", doc.contentTypes()},
		{"_rels/.rels", []byte(packageRels)},
		{"word/document.xml", doc.bytes()},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/settings.xml", []byte(settingsXML)},
		{"word/_rels/document.xml.rels", doc.documentRels()},
	}
	for _, m := range doc.media {
		parts = append(parts, struct {
			name string
			body []byte
		}{"word/media/" + m.name, m.data})
	}

	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := f.Write(p.body); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing docx: %w", err)
	}
	return nil
}

// document accumulates the body of word/document.xml.
type document struct {
	body  strings.Builder
	media []media
}

func (d *document) blog(b domain.GeneratedBlog) error {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		title = b.PrimaryKeyword
	}
	d.paragraph(paragraph{style: styleHeading1, runs: []run{{text: title}}})
	if desc := strings.TrimSpace(b.Meta.Description); desc != "" {
		d.paragraph(paragraph{style: styleSubtitle, runs: []run{{text: desc, italic: true}}})
	}
	d.image(b.Images.Featured)

	paragraphs, err := convertHTML(b.HTML)
	if err != nil {
		return err
	}
	for _, p := range paragraphs {
		d.paragraph(p)
	}

	d.image(b.Images.Body)
	return nil
}

func (d *document) paragraph(p paragraph) {
	d.body.WriteString("<w:p>")
	if p.style != "" || p.indent > 0 {
		d.body.WriteString("<w:pPr>")
		if p.style != "" {
			fmt.Fprintf(&d.body, `<w:pStyle w:val="%s"/>`, p.style)
		}
		if p.indent > 0 {
			fmt.Fprintf(&d.body, `<w:ind w:left="%d" w:hanging="360"/>`, 720*p.indent)
		}
		d.body.WriteString("</w:pPr>")
	}
	for _, r := range p.runs {
		d.run(r)
	}
	d.body.WriteString("</w:p>")
}

func (d *document) run(r run) {
	d.body.WriteString("<w:r>")
	if r.bold || r.italic {
		d.body.WriteString("<w:rPr>")
		if r.bold {
			d.body.WriteString("<w:b/>")
		}
		if r.italic {
			d.body.WriteString("<w:i/>")
		}
		d.body.WriteString("</w:rPr>")
	}
	if r.brk {
		d.body.WriteString("<w:br/>")
	} else {
		d.body.WriteString(`<w:t xml:space="preserve">`)
		escape(&d.body, r.text)
		d.body.WriteString("</w:t>")
	}
	d.body.WriteString("</w:r>")
}

func (d *document) pageBreak() {
	d.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func (d *document) tableOfContents() {
	d.paragraph(paragraph{style: styleHeading1, runs: []run{{text: "Table of Contents"}}})
	d.body.WriteString(`<w:p>` +
		`<w:r><w:fldChar w:fldCharType="begin" w:dirty="true"/></w:r>` +
		`<w:r><w:instrText xml:space="preserve"> TOC \o "1-2" \h \z \u </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:r><w:t>Open the document in Word and update fields to build the table of contents.</w:t></w:r>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
		`</w:p>`)
	d.pageBreak()
}

func (d *document) image(img domain.GeneratedImage) {
	if img.Data == "" {
		return
	}
	data, ext, err := decodeDataURI(img.Data)
	if err != nil {
		return
	}

	n := len(d.media) + 1
	w, h := scaledExtent(data)
	m := media{
		relID:     fmt.Sprintf("rIdImage%d", n),
		name:      fmt.Sprintf("image%d.%s", n, ext),
		ext:       ext,
		data:      data,
		widthEMU:  w,
		heightEMU: h,
		alt:       img.Alt,
		docPrID:   n,
	}
	d.media = append(d.media, m)

	fmt.Fprintf(&d.body, `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="Picture %d" descr="`, m.widthEMU, m.heightEMU, m.docPrID, m.docPrID)
	escape(&d.body, m.alt)
	fmt.Fprintf(&d.body, `"/>`+
		`<a:graphic><a:graphicData uri="%s"><pic:pic>`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		nsPic, m.docPrID, m.name, m.relID, m.widthEMU, m.heightEMU)
}

func (d *document) bytes() []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	fmt.Fprintf(&sb, `<w:document xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"><w:body>`,
		nsW, nsR, nsWP, nsA, nsPic)
	sb.WriteString(d.body.String())
	sb.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return []byte(sb.String())
}

func (d *document) contentTypes() []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)

	var exts []string
	for _, m := range d.media {
		if !slices.Contains(exts, m.ext) {
			exts = append(exts, m.ext)
		}
	}
	for _, ext := range exts {
		fmt.Fprintf(&sb, `<Default Extension="%s" ContentType="image/%s"/>`, ext, ext)
	}

	sb.WriteString(`<Override PartName="/word/document.xml" ` +
		`ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	sb.WriteString(`<Override PartName="/word/styles.xml" ` +
		`ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	sb.WriteString(`<Override PartName="/word/settings.xml" ` +
		`ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"/>`)
	sb.WriteString(`</Types>`)
	return []byte(sb.String())
}

func (d *document) documentRels() []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	fmt.Fprintf(&sb, `<Relationship Id="rIdStyles" Type="%s" Target="styles.xml"/>`, relStyles)
	fmt.Fprintf(&sb, `<Relationship Id="rIdSettings" Type="%s" Target="settings.xml"/>`, relSettings)
	for _, m := range d.media {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="media/%s"/>`, m.relID, relImage, m.name)
	}
	sb.WriteString(`</Relationships>`)
	return []byte(sb.String())
}

func escape(sb *strings.Builder, s string) {
	// strings.Builder writes never fail.
	_ = xml.EscapeText(sb, []byte(s))
}
