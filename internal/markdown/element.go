package markdown

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const textTag = "#text"

// Element is a read-only view of one node in a parsed HTML tree.
type Element interface {
	// TagName is the lower-case tag name, or "#text" for text nodes.
	TagName() string
	Attr(name string) (string, bool)
	// Children returns element children only.
	Children() []Element
	// Contents returns element and text children in document order.
	Contents() []Element
	// Text returns the visible descendant text with whitespace collapsed per
	// line. Line breaks from <br> and block boundaries are kept.
	Text() string
	// RawText returns the descendant text exactly as parsed.
	RawText() string
}

// Parse reads an HTML document and returns its root node.
func Parse(raw string) (Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(doc.Nodes) == 0 {
		return nil, &ParseError{Err: errEmptyDocument}
	}
	return node{sel: doc.Selection}, nil
}

// Body returns the <body> element of a parsed document.
func Body(doc Element) (Element, error) {
	if doc == nil {
		return nil, ErrMissingBody
	}
	n, ok := doc.(node)
	if !ok || n.TagName() == "body" {
		return findBody(doc)
	}
	body := n.sel.Find("body").First()
	if body.Length() == 0 {
		return nil, ErrMissingBody
	}
	return node{sel: body}, nil
}

func findBody(el Element) (Element, error) {
	if el.TagName() == "body" {
		return el, nil
	}
	for _, c := range el.Children() {
		if b, err := findBody(c); err == nil {
			return b, nil
		}
	}
	return nil, ErrMissingBody
}

type node struct {
	sel *goquery.Selection
}

func (n node) TagName() string {
	return strings.ToLower(goquery.NodeName(n.sel))
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Children() []Element {
	return wrap(n.sel.Children())
}

func (n node) Contents() []Element {
	return wrap(n.sel.Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
		t := s.Get(0).Type
		return t == html.ElementNode || t == html.TextNode
	}))
}

func (n node) RawText() string {
	return n.sel.Text()
}

func (n node) Text() string {
	var b strings.Builder
	for _, hn := range n.sel.Nodes {
		collectText(hn, &b)
	}
	return normalizeLines(b.String())
}

func wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out
}

var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "dd": {},
	"div": {}, "dl": {}, "dt": {}, "figcaption": {}, "figure": {},
	"footer": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"header": {}, "hr": {}, "li": {}, "main": {}, "nav": {}, "ol": {},
	"p": {}, "pre": {}, "section": {}, "table": {}, "tr": {}, "ul": {},
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		name := strings.ToLower(n.Data)
		if name == "script" || name == "style" {
			return
		}
		if name == "br" {
			b.WriteByte('\n')
			return
		}
		_, block := blockTags[name]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectText(c, b)
		}
		if block {
			b.WriteByte('\n')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
