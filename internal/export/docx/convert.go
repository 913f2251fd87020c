package docx

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Paragraph styles defined in styles.xml.
const (
	styleTitle    = "Title"
	styleHeading1 = "Heading1"
	styleHeading2 = "Heading2"
	styleHeading3 = "Heading3"
	styleSubtitle = "Subtitle"
	styleQuote    = "Quote"
)

type run struct {
	text   string
	bold   bool
	italic bool
	brk    bool
}

type paragraph struct {
	style  string
	indent int
	runs   []run
}

func (p paragraph) empty() bool {
	for _, r := range p.runs {
		if r.brk || strings.TrimSpace(r.text) != "" {
			return false
		}
	}
	return true
}

// converter flattens an HTML fragment into document paragraphs.
type converter struct {
	out     []paragraph
	pending paragraph
}

func convertHTML(fragment string) ([]paragraph, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("parsing blog html: %w", err)
	}

	c := &converter{}
	for _, n := range nodes {
		c.block(n, 0)
	}
	c.flush()
	return c.out, nil
}

func (c *converter) emit(p paragraph) {
	if !p.empty() {
		c.out = append(c.out, p)
	}
}

// flush closes any loose inline content collected outside a block element.
func (c *converter) flush() {
	c.emit(c.pending)
	c.pending = paragraph{}
}

func (c *converter) block(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		c.pending.runs = append(c.pending.runs, run{text: collapseSpace(n.Data)})
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2:
		c.flush()
		c.emit(paragraph{style: styleHeading2, runs: inlineRuns(n, false, false)})
	case atom.H3, atom.H4, atom.H5, atom.H6:
		c.flush()
		c.emit(paragraph{style: styleHeading3, runs: inlineRuns(n, false, false)})
	case atom.P:
		c.flush()
		c.emit(paragraph{runs: inlineRuns(n, false, false)})
	case atom.Blockquote:
		c.flush()
		c.emit(paragraph{style: styleQuote, runs: inlineRuns(n, false, true)})
	case atom.Ul, atom.Ol:
		c.flush()
		c.list(n, depth)
	case atom.Img, atom.Script, atom.Style:
	case atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Aside:
		c.flush()
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.block(child, depth)
		}
		c.flush()
	default:
		c.pending.runs = append(c.pending.runs, nodeRuns(n, false, false)...)
	}
}

func (c *converter) list(n *html.Node, depth int) {
	ordered := n.DataAtom == atom.Ol
	item := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		item++
		marker := "• "
		if ordered {
			marker = fmt.Sprintf("%d. ", item)
		}

		p := paragraph{indent: depth + 1, runs: []run{{text: marker}}}
		var nested []*html.Node
		for child := li.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && (child.DataAtom == atom.Ul || child.DataAtom == atom.Ol) {
				nested = append(nested, child)
				continue
			}
			p.runs = append(p.runs, nodeRuns(child, false, false)...)
		}
		c.emit(p)
		for _, sub := range nested {
			c.list(sub, depth+1)
		}
	}
}

func inlineRuns(n *html.Node, bold, italic bool) []run {
	var runs []run
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		runs = append(runs, nodeRuns(child, bold, italic)...)
	}
	return trimRuns(runs)
}

func nodeRuns(n *html.Node, bold, italic bool) []run {
	switch n.Type {
	case html.TextNode:
		return []run{{text: collapseSpace(n.Data), bold: bold, italic: italic}}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []run{{brk: true}}
	case atom.Strong, atom.B:
		bold = true
	case atom.Em, atom.I:
		italic = true
	case atom.Img, atom.Script, atom.Style:
		return nil
	}

	var runs []run
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		runs = append(runs, nodeRuns(child, bold, italic)...)
	}
	return runs
}

// trimRuns strips leading and trailing whitespace of the run sequence as a whole
// and drops runs left empty.
func trimRuns(runs []run) []run {
	if len(runs) > 0 && !runs[0].brk {
		runs[0].text = strings.TrimLeft(runs[0].text, " ")
	}
	if last := len(runs) - 1; last >= 0 && !runs[last].brk {
		runs[last].text = strings.TrimRight(runs[last].text, " ")
	}
	out := runs[:0]
	for _, r := range runs {
		if r.brk || r.text != "" {
			out = append(out, r)
		}
	}
	return out
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}
