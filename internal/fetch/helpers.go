package fetch

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// entryGUID keys an item for dedup: its own guid, else its link, else a hash
// of title and publish time.
func entryGUID(item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	stamp := ""
	if item.PublishedParsed != nil {
		stamp = item.PublishedParsed.UTC().Format(time.RFC3339Nano)
	}
	h := sha1.Sum([]byte(strings.TrimSpace(item.Title) + "|" + stamp))
	return "sha1:" + hex.EncodeToString(h[:])
}

func itemContent(item *gofeed.Item) string {
	if c := strings.TrimSpace(item.Content); c != "" {
		return c
	}
	return strings.TrimSpace(item.Description)
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	return ""
}

// coverCandidates lists the image URLs an item advertises, best first: the
// item image, image enclosures, then Media RSS thumbnails and content.
func coverCandidates(item *gofeed.Item) []string {
	var out []string
	if item.Image != nil {
		out = append(out, item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			out = append(out, enc.URL)
		}
	}
	media := item.Extensions["media"]
	for _, name := range []string{"thumbnail", "content"} {
		for _, ext := range media[name] {
			if name == "content" && ext.Attrs["medium"] != "image" && !strings.HasPrefix(ext.Attrs["type"], "image/") {
				continue
			}
			out = append(out, ext.Attrs["url"])
		}
	}
	return out
}

func fallback(v, fb string) string {
	if strings.TrimSpace(v) == "" {
		return fb
	}
	return v
}
