package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrEmptyHTML is returned when there is no markup to process.
var ErrEmptyHTML = errors.New("html content is empty")

// Elements removed together with their children.
var blockedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Iframe: true,
	atom.Object: true,
	atom.Embed:  true,
	atom.Form:   true,
	atom.Link:   true,
	atom.Meta:   true,
}

// Attributes whose values are URLs. srcset is checked per candidate.
var urlAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"poster":     true,
	"cite":       true,
	"background": true,
	"xlink:href": true,
}

// Schemes that execute or smuggle markup when followed.
var unsafeSchemes = []string{"javascript:", "vbscript:", "data:"}

// Sanitize removes scripts, embedded objects, event handler attributes, and
// javascript: URLs from an HTML fragment.
func Sanitize(fragment string) (string, error) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}
	return render(nodes)
}

func parseFragment(fragment string) ([]*html.Node, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, ErrEmptyHTML
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	// Wrap in a synthetic root so cleaning can detach top-level nodes.
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	clean(root)

	var out []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	for _, n := range out {
		root.RemoveChild(n)
	}
	return out, nil
}

func clean(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && blockedElements[c.DataAtom]:
			n.RemoveChild(c)
		case c.Type == html.ElementNode:
			c.Attr = cleanAttributes(c.Attr)
			clean(c)
		}
		c = next
	}
}

func cleanAttributes(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if urlAttributes[key] && isUnsafeURL(key, a.Val) {
			continue
		}
		if key == "srcset" && unsafeSrcset(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// isUnsafeURL reports whether v uses a blocked scheme. Inline raster images
// stay allowed in src.
func isUnsafeURL(key, v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	if key == "src" && isDataImage(v) {
		return false
	}
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(v, scheme) {
			return true
		}
	}
	return false
}

func isDataImage(v string) bool {
	for _, mime := range []string{"png", "jpeg", "jpg", "gif", "webp"} {
		if strings.HasPrefix(v, "data:image/"+mime+";") || strings.HasPrefix(v, "data:image/"+mime+",") {
			return true
		}
	}
	return false
}

// unsafeSrcset checks each "url [descriptor]" candidate of a srcset value.
func unsafeSrcset(v string) bool {
	for _, candidate := range strings.Split(v, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 && isUnsafeURL("srcset", fields[0]) {
			return true
		}
	}
	return false
}

func render(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
	}
	return buf.String(), nil
}
