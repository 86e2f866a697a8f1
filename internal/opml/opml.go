// Package opml reads and writes subscription lists in OPML 2.0.
package opml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/odysseus0/feedmd/internal/model"
)

const exportTitle = "feedmd subscriptions"

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr,omitempty"`
	Head    struct {
		Title string `xml:"title,omitempty"`
	} `xml:"head"`
	Body struct {
		Outlines []outline `xml:"outline"`
	} `xml:"body"`
}

type outline struct {
	Text         string    `xml:"text,attr,omitempty"`
	Title        string    `xml:"title,attr,omitempty"`
	Type         string    `xml:"type,attr,omitempty"`
	XMLURL       string    `xml:"xmlUrl,attr,omitempty"`
	XMLURLLower  string    `xml:"xmlurl,attr,omitempty"`
	HTMLURL      string    `xml:"htmlUrl,attr,omitempty"`
	HTMLURLLower string    `xml:"htmlurl,attr,omitempty"`
	Outlines     []outline `xml:"outline,omitempty"`
}

// Subscription is one feed outline.
type Subscription struct {
	Title   string
	URL     string
	SiteURL string
}

// Open returns a reader for a local path or an http(s) URL.
func Open(ctx context.Context, client *http.Client, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
	}
	return resp.Body, nil
}

// Read walks nested outlines and returns each feed once, in document order.
// Non-UTF-8 documents are decoded from their declared charset.
func Read(r io.Reader) ([]Subscription, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}

	var subs []Subscription
	seen := map[string]bool{}
	var walk func([]outline)
	walk = func(outlines []outline) {
		for _, o := range outlines {
			if u := o.feedURL(); u != "" && !seen[u] {
				seen[u] = true
				subs = append(subs, Subscription{
					Title:   firstNonEmpty(o.Title, o.Text),
					URL:     u,
					SiteURL: firstNonEmpty(o.HTMLURL, o.HTMLURLLower),
				})
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return subs, nil
}

// Write exports feeds under a single "Subscriptions" folder.
func Write(w io.Writer, feeds []model.Feed) error {
	outlines := make([]outline, 0, len(feeds))
	for _, f := range feeds {
		title := firstNonEmpty(f.Title, f.URL)
		outlines = append(outlines, outline{
			Text:    title,
			Title:   title,
			Type:    "rss",
			XMLURL:  f.URL,
			HTMLURL: f.SiteURL,
		})
	}

	doc := document{Version: "2.0"}
	doc.Head.Title = exportTitle
	doc.Body.Outlines = []outline{{Text: "Subscriptions", Title: "Subscriptions", Outlines: outlines}}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (o outline) feedURL() string {
	return firstNonEmpty(o.XMLURL, o.XMLURLLower)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
