package content

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// Enhance sanitizes fragment and makes sure it links to the request's
// backlink. When no anchor already points there, the first mention of the
// primary keyword inside a paragraph becomes the link; failing that, a
// closing paragraph with the link is appended.
func Enhance(fragment string, req domain.BlogRequest) (string, error) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}

	backlink := strings.TrimSpace(req.BacklinkURL)
	if backlink == "" || containsLink(nodes, backlink) {
		return render(nodes)
	}

	if !linkFirstMention(nodes, req.PrimaryKeyword, backlink) {
		nodes = append(nodes, learnMoreParagraph(req.PrimaryKeyword, backlink))
	}
	return render(nodes)
}

func containsLink(nodes []*html.Node, backlink string) bool {
	want := normalizeURL(backlink)
	found := false
	walk(nodes, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && normalizeURL(attr(n, "href")) == want {
			found = true
		}
		return !found
	})
	return found
}

// linkFirstMention wraps the first keyword occurrence in a paragraph text node
// that is not already inside an anchor.
func linkFirstMention(nodes []*html.Node, keyword, backlink string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	linked := false
	walk(nodes, func(n *html.Node) bool {
		if linked || n.Type != html.TextNode || !insideParagraph(n) || insideAnchor(n) {
			return !linked
		}
		idx := indexFold(n.Data, keyword)
		if idx < 0 {
			return true
		}

		before, match, after := n.Data[:idx], n.Data[idx:idx+len(keyword)], n.Data[idx+len(keyword):]
		parent := n.Parent
		anchor := newAnchor(backlink, match)
		parent.InsertBefore(anchor, n)
		if before != "" {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, anchor)
		}
		if after != "" {
			n.Data = after
		} else {
			parent.RemoveChild(n)
		}
		linked = true
		return false
	})
	return linked
}

func learnMoreParagraph(keyword, backlink string) *html.Node {
	text := "Learn more"
	if k := strings.TrimSpace(keyword); k != "" {
		text = "Learn more about " + k
	}
	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	p.AppendChild(newAnchor(backlink, text))
	return p
}

func newAnchor(href, text string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "rel", Val: "noopener"},
			{Key: "target", Val: "_blank"},
		},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return a
}

// walk visits nodes depth-first until fn returns false.
func walk(nodes []*html.Node, fn func(*html.Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		if !walk(children, fn) {
			return false
		}
	}
	return true
}

func insideParagraph(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.P {
			return true
		}
	}
	return false
}

func insideAnchor(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.A {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// indexFold is a case-insensitive strings.Index that falls back to an exact
// match when lowercasing would shift byte offsets.
func indexFold(s, substr string) int {
	ls, lsub := strings.ToLower(s), strings.ToLower(substr)
	if len(ls) != len(s) || len(lsub) != len(substr) {
		return strings.Index(s, substr)
	}
	return strings.Index(ls, lsub)
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

// PlainText returns the text content of an HTML fragment with whitespace
// collapsed.
func PlainText(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	walk(nodes, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
