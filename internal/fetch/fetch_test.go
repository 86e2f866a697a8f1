package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/odysseus0/feedmd/internal/imageproxy"
	"github.com/odysseus0/feedmd/internal/markdown"
	"github.com/odysseus0/feedmd/internal/store"
)

func TestFetcher_ConditionalFetchRendersMarkdown(t *testing.T) {
	s := newTestStore(t)
	fetcher := newTestFetcher(s)
	ctx := context.Background()

	const etag = `"v1"`
	const img = "https://wx1.sinaimg.cn/large/a.jpg"
	const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Feed</title><link>https://example.com</link><description>desc</description>
<item>
  <guid>item-1</guid>
  <title>Entry One</title>
  <link>https://example.com/entry-1</link>
  <description><![CDATA[<h2>Hi</h2><p><img src="` + img + `" alt="pic"></p><script>alert(1)</script>]]></description>
</item>
</channel></rss>`

	var reqCount int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&reqCount, 1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	feed := mustCreateFeed(t, s, srv.URL)
	rep, err := fetcher.Fetch(ctx, &feed.ID)
	if err != nil {
		t.Fatalf("fetch 1: %v", err)
	}
	if len(rep.Results) != 1 || rep.Results[0].NewEntries != 1 || rep.Results[0].FeedTitle != "Test Feed" {
		t.Fatalf("unexpected first fetch report: %+v", rep)
	}

	entries := mustListAll(t, s)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if strings.Contains(strings.ToLower(e.ContentHTML), "<script") {
		t.Fatalf("content_html was not sanitized: %q", e.ContentHTML)
	}
	wantMD := "## Hi\n\n![pic](" + imageproxy.Rewrite(img) + ")"
	if e.ContentMD != wantMD {
		t.Fatalf("content_md = %q, want %q", e.ContentMD, wantMD)
	}
	if e.RenderErrors != 0 {
		t.Fatalf("unexpected render errors: %d", e.RenderErrors)
	}

	rep, err = fetcher.Fetch(ctx, &feed.ID)
	if err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if len(rep.Results) != 1 || !rep.Results[0].NotModified {
		t.Fatalf("expected not_modified on second fetch, got %+v", rep.Results)
	}
	if n := len(mustListAll(t, s)); n != 1 {
		t.Fatalf("expected dedup to keep 1 entry, got %d", n)
	}
	if atomic.LoadInt32(&reqCount) != 2 {
		t.Fatalf("expected 2 requests, got %d", reqCount)
	}

	updated, err := s.GetFeedByID(ctx, feed.ID)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if updated.ETag != etag || updated.Title != "Test Feed" {
		t.Fatalf("feed metadata not persisted: %+v", updated)
	}
}

func TestFetcher_RecordsRenderErrorsAndCoverImage(t *testing.T) {
	s := newTestStore(t)
	fetcher := newTestFetcher(s)
	ctx := context.Background()

	const cover = "https://i.pximg.net/cover.png"
	srv := serveXML(t, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title><link>https://example.com</link>
<item>
  <guid>g1</guid><title>Broken image</title>
  <enclosure url="https://example.com/a.mp3" type="audio/mpeg" length="1"/>
  <enclosure url="`+cover+`" type="image/png" length="1"/>
  <description><![CDATA[<p>before</p><img alt="no source"><p>after</p>]]></description>
</item>
</channel></rss>`)

	feed := mustCreateFeed(t, s, srv.URL)
	if _, err := fetcher.Fetch(ctx, &feed.ID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	e := mustListAll(t, s)[0]
	if e.RenderErrors != 1 {
		t.Fatalf("render_errors = %d, want 1", e.RenderErrors)
	}
	wantMD := "before\n\n" + strings.TrimSpace(markdown.DefaultErrorMarker) + "\n\nafter"
	if e.ContentMD != wantMD {
		t.Fatalf("content_md = %q, want %q", e.ContentMD, wantMD)
	}
	if e.ImageURL != imageproxy.Rewrite(cover) {
		t.Fatalf("image_url = %q", e.ImageURL)
	}
}

func TestFetcher_RewriteImagesDisabled(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	cfg.RewriteImages = false
	fetcher := newTestFetcherWith(s, cfg)

	const img = "https://avatars.githubusercontent.com/u/7"
	srv := serveXML(t, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title><link>https://example.com</link>
<item><guid>g1</guid><description><![CDATA[<p><img src="`+img+`" alt="me"></p>]]></description></item>
</channel></rss>`)

	feed := mustCreateFeed(t, s, srv.URL)
	if _, err := fetcher.Fetch(context.Background(), &feed.ID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := mustListAll(t, s)[0].ContentMD; got != "![me]("+img+")" {
		t.Fatalf("content_md = %q", got)
	}
}

func TestFetcher_GUIDFallbacks(t *testing.T) {
	cases := []struct {
		name  string
		item  string
		check func(t *testing.T, guid string)
	}{
		{
			name: "entry link",
			item: `<title>No GUID</title><link>https://example.com/entry</link>`,
			check: func(t *testing.T, guid string) {
				if guid != "https://example.com/entry" {
					t.Fatalf("expected guid fallback to link, got %q", guid)
				}
			},
		},
		{
			name: "title and date hash",
			item: `<title>No GUID or Link</title><pubDate>Fri, 13 Feb 2026 00:00:00 GMT</pubDate>`,
			check: func(t *testing.T, guid string) {
				if !strings.HasPrefix(guid, "sha1:") {
					t.Fatalf("expected sha1 guid fallback, got %q", guid)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			fetcher := newTestFetcher(s)
			srv := serveXML(t, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title><link>https://example.com</link><item>`+tc.item+`</item></channel></rss>`)
			feed := mustCreateFeed(t, s, srv.URL)
			for i := 0; i < 2; i++ {
				if _, err := fetcher.Fetch(context.Background(), &feed.ID); err != nil {
					t.Fatalf("fetch %d: %v", i+1, err)
				}
			}
			all := mustListAll(t, s)
			if len(all) != 1 {
				t.Fatalf("expected dedup to keep one entry, got %d", len(all))
			}
			tc.check(t, all[0].GUID)
		})
	}
}

func TestFetcherWithProgress_CallbackCounts(t *testing.T) {
	s := newTestStore(t)
	fetcher := newTestFetcher(s)
	srv := serveXML(t, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title><link>https://example.com</link><item><guid>g1</guid><title>A</title></item></channel></rss>`)

	mustCreateFeed(t, s, srv.URL+"/one")
	mustCreateFeed(t, s, srv.URL+"/two")

	calls, lastTotal := 0, 0
	_, err := fetcher.FetchWithProgress(context.Background(), nil, func(done, total int, _ FetchResult) {
		calls++
		lastTotal = total
		if done != calls || done > total {
			t.Errorf("invalid callback done/total: %d/%d", done, total)
		}
	})
	if err != nil {
		t.Fatalf("fetch with progress: %v", err)
	}
	if calls != 2 || lastTotal != 2 {
		t.Fatalf("expected 2 callbacks with total 2, got calls=%d total=%d", calls, lastTotal)
	}
}

func TestFetcher_HTTPErrorIsRecordedOnFeed(t *testing.T) {
	s := newTestStore(t)
	fetcher := newTestFetcher(s)
	ctx := context.Background()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	feed := mustCreateFeed(t, s, srv.URL)
	rep, err := fetcher.Fetch(ctx, &feed.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rep.Results) != 1 || rep.Results[0].Error != "http 404" {
		t.Fatalf("expected fetch error result, got %+v", rep.Results)
	}
	updated, err := s.GetFeedByID(ctx, feed.ID)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if updated.ErrorCount != 1 || updated.LastError != "http 404" {
		t.Fatalf("expected feed error state to be populated: %+v", updated)
	}
}

func TestFetcher_UnknownFeedID(t *testing.T) {
	fetcher := newTestFetcher(newTestStore(t))
	id := int64(999)
	if _, err := fetcher.Fetch(context.Background(), &id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetcher_ReportsPruneWarning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	srv := serveXML(t, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title><link>https://example.com</link></channel></rss>`)

	feed := mustCreateFeed(t, s, srv.URL)
	old := time.Now().AddDate(0, 0, -40).UTC()
	entryID, _, err := s.UpsertEntry(ctx, UpsertEntryInput{FeedID: feed.ID, GUID: "old-guid", PublishedAt: &old})
	if err != nil {
		t.Fatalf("upsert old entry: %v", err)
	}
	if err := s.UpdateEntryRead(ctx, entryID, true); err != nil {
		t.Fatalf("mark old entry read: %v", err)
	}

	cfg := testConfig()
	cfg.RetentionDays = 30
	rep, err := newTestFetcherWith(s, cfg).Fetch(ctx, &feed.ID)
	if err != nil {
		t.Fatalf("fetch with retention: %v", err)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "pruned 1 old entries" {
		t.Fatalf("expected prune warning, got %#v", rep.Warnings)
	}
}

func TestFetcher_Rerender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "https://example.com/feed.xml")

	const img = "https://cdnfile.sspai.com/a.png"
	stale, _, err := s.UpsertEntry(ctx, UpsertEntryInput{
		FeedID:      feed.ID,
		GUID:        "stale",
		ContentHTML: `<p><img src="` + img + `" alt="a"></p>`,
		ContentMD:   "![a](" + img + ")",
	})
	if err != nil {
		t.Fatalf("upsert stale: %v", err)
	}
	fresh, _, err := s.UpsertEntry(ctx, UpsertEntryInput{FeedID: feed.ID, GUID: "fresh", ContentHTML: "<p>ok</p>", ContentMD: "ok"})
	if err != nil {
		t.Fatalf("upsert fresh: %v", err)
	}

	rep, err := newTestFetcher(s).Rerender(ctx, feed.ID)
	if err != nil {
		t.Fatalf("rerender: %v", err)
	}
	if rep != (RerenderReport{Entries: 2, Changed: 1}) {
		t.Fatalf("unexpected report: %+v", rep)
	}
	got, err := s.GetEntry(ctx, stale)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ContentMD != "![a]("+imageproxy.Rewrite(img)+")" {
		t.Fatalf("content_md not rerendered: %q", got.ContentMD)
	}
	if got, _ := s.GetEntry(ctx, fresh); got.ContentMD != "ok" {
		t.Fatalf("unchanged entry altered: %q", got.ContentMD)
	}

	if _, err := newTestFetcher(s).Rerender(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown feed, got %v", err)
	}
}
