// Package fetch polls subscribed feeds and stores their entries with
// pre-rendered Markdown.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/odysseus0/feedmd/internal/render"
	"github.com/odysseus0/feedmd/internal/store"
)

const (
	maxFeedBytes = 16 << 20
	acceptHeader = "application/xml, application/atom+xml, application/rss+xml, application/feed+json, text/xml, text/html, */*;q=0.8"
)

type Fetcher struct {
	store    *Store
	renderer *render.Renderer
	cfg      Config
	client   *http.Client
	logger   *slog.Logger
}

// ProgressFunc is called once per finished feed, from the caller's goroutine.
type ProgressFunc func(done, total int, result FetchResult)

func NewFetcher(s *Store, renderer *render.Renderer, cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	return &Fetcher{
		store:    s,
		renderer: renderer,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport},
		logger:   logger,
	}
}

func (f *Fetcher) HTTPClient() *http.Client {
	return f.client
}

func (f *Fetcher) DiscoverFeedURL(ctx context.Context, rawURL string) (string, error) {
	return DiscoverFeedURL(ctx, f.client, gofeed.NewParser(), rawURL, f.cfg.UserAgent)
}

func (f *Fetcher) Fetch(ctx context.Context, feedID *int64) (FetchReport, error) {
	return f.FetchWithProgress(ctx, feedID, nil)
}

// FetchWithProgress fetches one feed (feedID non-nil) or all of them. Per-feed
// failures are recorded on the feed and in the report, not returned.
func (f *Fetcher) FetchWithProgress(ctx context.Context, feedID *int64, progress ProgressFunc) (FetchReport, error) {
	feeds, err := f.store.ListFeedsForFetch(ctx, feedID)
	if err != nil {
		return FetchReport{}, err
	}

	report := FetchReport{StartedAt: time.Now()}
	if len(feeds) > 0 {
		report.Results = f.fetchAll(ctx, feeds, progress)
		sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].FeedID < report.Results[j].FeedID })
	}

	if f.cfg.RetentionDays > 0 {
		pruned, err := f.store.PruneReadEntriesOlderThan(ctx, f.cfg.RetentionDays)
		switch {
		case err != nil:
			report.Warnings = append(report.Warnings, fmt.Sprintf("prune failed: %v", err))
		case pruned > 0:
			report.Warnings = append(report.Warnings, fmt.Sprintf("pruned %d old entries", pruned))
		}
	}
	report.EndedAt = time.Now()
	return report, nil
}

func (f *Fetcher) fetchAll(ctx context.Context, feeds []Feed, progress ProgressFunc) []FetchResult {
	workers := f.cfg.FetchConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(feeds) {
		workers = len(feeds)
	}

	jobs := make(chan Feed)
	out := make(chan FetchResult, len(feeds))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feed := range jobs {
				out <- f.fetchOne(ctx, feed)
			}
		}()
	}
	go func() {
		for _, feed := range feeds {
			jobs <- feed
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	results := make([]FetchResult, 0, len(feeds))
	for result := range out {
		results = append(results, result)
		if progress != nil {
			progress(len(results), len(feeds), result)
		}
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, feed Feed) FetchResult {
	result := FetchResult{
		FeedID:    feed.ID,
		FeedTitle: fallback(feed.Title, feed.URL),
		FeedURL:   feed.URL,
	}
	log := f.logger.With("feed", feed.ID, "url", feed.URL)

	req, err := f.newFeedRequest(ctx, feed)
	if err != nil {
		return f.failFeed(ctx, log, result, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return f.failFeed(ctx, log, result, err)
	}
	defer resp.Body.Close()

	meta := store.FeedFetch{FetchedAt: time.Now()}
	meta.ETag, meta.LastModified = cacheHeaders(resp, feed)

	switch {
	case resp.StatusCode == http.StatusNotModified:
		result.NotModified = true
		if err := f.store.UpdateFeedFetchSuccess(ctx, feed.ID, meta); err != nil {
			return f.failFeed(ctx, log, result, err)
		}
		log.Debug("fetch: not modified")
		return result
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return f.failFeed(ctx, log, result, fmt.Errorf("http %d", resp.StatusCode))
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return f.failFeed(ctx, log, result, err)
	}

	result.NewEntries, result.Updated, err = f.storeItems(ctx, log, feed.ID, parsed.Items)
	if err != nil {
		return f.failFeed(ctx, log, result, err)
	}

	meta.Title = strings.TrimSpace(parsed.Title)
	meta.SiteURL = strings.TrimSpace(parsed.Link)
	meta.Description = strings.TrimSpace(parsed.Description)
	if err := f.store.UpdateFeedFetchSuccess(ctx, feed.ID, meta); err != nil {
		return f.failFeed(ctx, log, result, err)
	}
	result.FeedTitle = fallback(meta.Title, result.FeedTitle)
	log.Info("fetch: stored entries", "new", result.NewEntries, "updated", result.Updated)
	return result
}

func (f *Fetcher) newFeedRequest(ctx context.Context, feed Feed) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	if feed.ETag != "" {
		req.Header.Set("If-None-Match", feed.ETag)
	}
	if feed.LastModified != "" {
		req.Header.Set("If-Modified-Since", feed.LastModified)
	}
	return req, nil
}

// cacheHeaders keeps the previous validators when the response omits them.
func cacheHeaders(resp *http.Response, feed Feed) (etag, lastModified string) {
	etag = fallback(strings.TrimSpace(resp.Header.Get("ETag")), feed.ETag)
	lastModified = fallback(strings.TrimSpace(resp.Header.Get("Last-Modified")), feed.LastModified)
	return etag, lastModified
}

func (f *Fetcher) storeItems(ctx context.Context, log *slog.Logger, feedID int64, items []*gofeed.Item) (inserted, updated int, err error) {
	for _, item := range items {
		if item == nil {
			continue
		}
		contentHTML := render.SanitizeHTML(itemContent(item))
		article := f.renderer.Article(contentHTML)
		if article.Failures > 0 {
			log.Warn("fetch: entry rendered with errors", "link", item.Link, "failures", article.Failures)
		}

		_, isNew, err := f.store.UpsertEntry(ctx, UpsertEntryInput{
			FeedID:       feedID,
			GUID:         entryGUID(item),
			URL:          strings.TrimSpace(item.Link),
			Title:        strings.TrimSpace(item.Title),
			Summary:      f.renderer.Summary(item.Description),
			ContentHTML:  contentHTML,
			ContentMD:    article.Markdown,
			ImageURL:     f.renderer.CoverImage(coverCandidates(item)...),
			Author:       itemAuthor(item),
			PublishedAt:  item.PublishedParsed,
			DateModified: item.UpdatedParsed,
			RenderErrors: article.Failures,
		})
		if err != nil {
			return inserted, updated, err
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}

func (f *Fetcher) failFeed(ctx context.Context, log *slog.Logger, result FetchResult, err error) FetchResult {
	result.Error = err.Error()
	log.Warn("fetch: feed failed", "err", err)
	if persistErr := f.store.SetFeedError(ctx, result.FeedID, result.Error); persistErr != nil {
		result.Error = fmt.Sprintf("%s; additionally failed to persist feed error: %v", result.Error, persistErr)
	}
	return result
}
