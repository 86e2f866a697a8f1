package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var blockedSelector = cascadia.MustCompile("base, embed, form, iframe, input, link, meta, noscript, object, script, style, textarea")

// SanitizeHTML strips active content from feed markup before it is stored:
// scripting and embedding tags, comments, event handler and style attributes,
// and script or non-image data URLs.
func SanitizeHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + raw + "</body>"))
	if err != nil {
		return raw
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return raw
	}

	body.FindMatcher(blockedSelector).Remove()
	dropComments(body.Get(0))
	body.Find("*").Each(func(_ int, s *goquery.Selection) {
		cleanAttrs(s)
	})

	out, err := body.Html()
	if err != nil {
		return raw
	}
	return strings.TrimSpace(out)
}

func dropComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			dropComments(c)
		}
		c = next
	}
}

func cleanAttrs(s *goquery.Selection) {
	n := s.Get(0)
	tag := strings.ToLower(n.Data)
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(strings.TrimSpace(a.Key))
		switch {
		case key == "", strings.HasPrefix(key, "on"), key == "style", key == "srcdoc":
			continue
		case isURLAttr(key) && !isSafeURL(a.Val, tag, key):
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func isURLAttr(key string) bool {
	switch key {
	case "href", "src", "poster", "cite", "action", "formaction", "data":
		return true
	}
	return false
}

func isSafeURL(v, tag, attr string) bool {
	u := strings.ToLower(strings.TrimSpace(v))
	switch {
	case u == "":
		return true
	case strings.HasPrefix(u, "javascript:"), strings.HasPrefix(u, "vbscript:"):
		return false
	case strings.HasPrefix(u, "data:"):
		return tag == "img" && attr == "src" && strings.HasPrefix(u, "data:image/")
	}
	return true
}
