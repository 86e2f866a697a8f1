package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/odysseus0/feedmd/internal/store"
)

const maxPageBytes = 8 << 20

// NormalizeURL trims raw and defaults a missing scheme to https.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", store.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if u.Scheme == "" {
		// "example.com/feed" parses as a bare path.
		if u, err = url.Parse("https://" + raw); err != nil {
			return "", fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", store.ErrInvalidInput, raw)
	}
	return u.String(), nil
}

// DiscoverFeedURL resolves rawURL to a feed URL. A URL that already serves a
// feed is returned after redirects; an HTML page is searched for alternate
// feed links.
func DiscoverFeedURL(ctx context.Context, client *http.Client, parser *gofeed.Parser, rawURL, userAgent string) (string, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	page, err := getPage(ctx, client, target, fallback(userAgent, "feedmd/0.1"))
	if err != nil {
		return "", err
	}

	if _, err := parser.Parse(bytes.NewReader(page.body)); err == nil {
		return page.url.String(), nil
	}
	if candidates := discoverFeedCandidates(page.body, page.url); len(candidates) > 0 {
		return candidates[0], nil
	}
	if page.status < 200 || page.status >= 300 {
		return "", fmt.Errorf("request failed: %d %s", page.status, http.StatusText(page.status))
	}
	return "", fmt.Errorf("no feed discovered at %s", page.url)
}

type fetchedPage struct {
	url    *url.URL
	status int
	body   []byte
}

func getPage(ctx context.Context, client *http.Client, target, userAgent string) (fetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fetchedPage{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return fetchedPage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fetchedPage{}, err
	}
	if len(body) == 0 {
		return fetchedPage{}, fmt.Errorf("empty response body from %s", target)
	}
	// resp.Request is the last request after redirects.
	return fetchedPage{url: resp.Request.URL, status: resp.StatusCode, body: body}, nil
}

// discoverFeedCandidates returns the absolute URLs of feed links advertised
// in an HTML page, in document order and without duplicates.
func discoverFeedCandidates(body []byte, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	if href := strings.TrimSpace(doc.Find("base[href]").First().AttrOr("href", "")); href != "" {
		if u, err := url.Parse(href); err == nil {
			base = base.ResolveReference(u)
		}
	}

	var out []string
	seen := map[string]bool{}
	doc.Find("link[rel][href]").Each(func(_ int, link *goquery.Selection) {
		if !isAlternateRel(link.AttrOr("rel", "")) {
			return
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		typeAttr := strings.ToLower(strings.TrimSpace(link.AttrOr("type", "")))
		if href == "" || !isFeedLinkType(typeAttr, href) {
			return
		}
		if typeAttr == "application/json" && strings.Contains(strings.ToLower(href), "/wp-json/") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(u).String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	})
	return out
}

func isAlternateRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "alternate" {
			return true
		}
	}
	return false
}

func isFeedLinkType(typeAttr, href string) bool {
	typeAttr = strings.ToLower(strings.TrimSpace(typeAttr))
	switch typeAttr {
	case "application/rss+xml", "application/atom+xml", "application/feed+json", "application/json", "application/xml", "text/xml":
		return true
	}
	if typeAttr != "" {
		return strings.Contains(typeAttr, "rss") || strings.Contains(typeAttr, "atom") || strings.Contains(typeAttr, "feed")
	}

	h := strings.ToLower(strings.TrimSpace(href))
	checkPath := h
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		checkPath = strings.ToLower(u.Path)
	}
	ext := path.Ext(checkPath)
	if ext == ".rss" || ext == ".atom" || ext == ".xml" || ext == ".json" {
		return true
	}
	return strings.Contains(h, "/feed") || strings.Contains(h, "rss") || strings.Contains(h, "atom")
}
