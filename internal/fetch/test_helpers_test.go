package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/odysseus0/feedmd/internal/config"
	"github.com/odysseus0/feedmd/internal/render"
	"github.com/odysseus0/feedmd/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "feedmd.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return store.NewStore(db)
}

func testConfig() config.Config {
	return config.Config{
		HTTPTimeout:      5 * time.Second,
		FetchConcurrency: 4,
		UserAgent:        "feedmd-test/1.0",
		RewriteImages:    true,
	}
}

func newTestFetcherWith(s *store.Store, cfg config.Config) *Fetcher {
	renderer := render.NewRenderer(render.Options{RewriteImages: cfg.RewriteImages, Logger: discardLogger()})
	return NewFetcher(s, renderer, cfg, discardLogger())
}

func newTestFetcher(s *store.Store) *Fetcher {
	return newTestFetcherWith(s, testConfig())
}

func mustCreateFeed(t *testing.T, s *store.Store, url string) store.Feed {
	t.Helper()
	feed, _, err := s.CreateFeed(context.Background(), url)
	if err != nil {
		t.Fatalf("create feed: %v", err)
	}
	return feed
}

func serveXML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustListAll(t *testing.T, s *store.Store) []store.Entry {
	t.Helper()
	entries, err := s.ListEntries(context.Background(), EntryListOptions{Status: "all", Limit: 50})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	return entries
}
