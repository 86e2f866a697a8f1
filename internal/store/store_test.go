package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStoreFetchStaleness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	st, err := store.GetFetchStaleness(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("staleness empty: %v", err)
	}
	if st != (Staleness{}) {
		t.Fatalf("unexpected empty staleness: %+v", st)
	}

	f1 := mustCreateFeed(t, store, "https://example.com/feed1.xml")
	st, err = store.GetFetchStaleness(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("staleness one feed: %v", err)
	}
	if !st.HasFeeds || !st.Stale || st.LastFetched != nil {
		t.Fatalf("expected stale with never-fetched feed: %+v", st)
	}

	if err := store.UpdateFeedFetchSuccess(ctx, f1.ID, FeedFetch{Title: "f1", FetchedAt: time.Now()}); err != nil {
		t.Fatalf("update fetch success: %v", err)
	}
	st, err = store.GetFetchStaleness(ctx, time.Hour)
	if err != nil {
		t.Fatalf("staleness fresh: %v", err)
	}
	if st.Stale || st.LastFetched == nil {
		t.Fatalf("expected fresh staleness: %+v", st)
	}

	if err := store.UpdateFeedFetchSuccess(ctx, f1.ID, FeedFetch{FetchedAt: time.Now().Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("update old fetch: %v", err)
	}
	st, err = store.GetFetchStaleness(ctx, time.Hour)
	if err != nil {
		t.Fatalf("staleness old: %v", err)
	}
	if !st.Stale {
		t.Fatalf("expected stale when latest fetch is too old")
	}

	feed, err := store.GetFeedByID(ctx, f1.ID)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if feed.Title != "f1" {
		t.Fatalf("empty title should keep stored one, got %q", feed.Title)
	}
}

func TestStoreUpsertKeepsReadStateAndRenderColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, store, "https://example.com/feed.xml")

	in := UpsertEntryInput{
		FeedID:       feed.ID,
		GUID:         "g1",
		Title:        "First",
		ContentHTML:  "<p>x</p>",
		ContentMD:    "x",
		ImageURL:     "https://img.example.com/a.png",
		RenderErrors: 2,
	}
	id, inserted, err := store.UpsertEntry(ctx, in)
	if err != nil || !inserted {
		t.Fatalf("insert: inserted=%v err=%v", inserted, err)
	}
	if err := store.UpdateEntryRead(ctx, id, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	in.Title = "First (edited)"
	in.RenderErrors = 0
	again, inserted, err := store.UpsertEntry(ctx, in)
	if err != nil || inserted || again != id {
		t.Fatalf("update: id=%d inserted=%v err=%v", again, inserted, err)
	}

	got, err := store.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Title != "First (edited)" || !got.Read || got.RenderErrors != 0 || got.ImageURL != in.ImageURL {
		t.Fatalf("unexpected entry after update: %+v", got)
	}
	if got.FeedTitle != feed.URL {
		t.Fatalf("untitled feed should fall back to url, got %q", got.FeedTitle)
	}
}

func TestStoreStatusSearchAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, store, "https://example.com/feed.xml")

	id1 := mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "g1", Title: "Rust ownership", Summary: "memory safety", RenderErrors: 1})
	id2 := mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "g2", Title: "Go scheduler", Summary: "goroutines"})

	results, err := store.SearchEntries(ctx, SearchOptions{Query: "Rust", Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != id1 {
		t.Fatalf("expected rust entry in search results, got %+v", results)
	}

	if err := store.SetEntriesRead(ctx, []int64{id1}, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := store.ListEntries(ctx, EntryListOptions{Status: "unread", Limit: 10})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != id2 {
		t.Fatalf("expected only second entry unread, got %+v", unread)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (Stats{Feeds: 1, Total: 2, Unread: 1, RenderErrors: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	feeds, err := store.ListFeedsWithCounts(ctx)
	if err != nil {
		t.Fatalf("list feeds: %v", err)
	}
	if len(feeds) != 1 || feeds[0].UnreadCount != 1 || feeds[0].TotalCount != 2 {
		t.Fatalf("unexpected feed counts: %+v", feeds)
	}
}

func TestStoreSetEntriesReadIsAllOrNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, store, "https://example.com/feed.xml")
	id := mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "g1"})

	if err := store.SetEntriesRead(ctx, []int64{id, 999}, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := store.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Read {
		t.Fatalf("failed batch must not mark entries read")
	}
}

func TestStoreRerenderQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := mustCreateFeed(t, store, "https://a.example.com/feed.xml")
	b := mustCreateFeed(t, store, "https://b.example.com/feed.xml")

	ida := mustUpsert(t, store, UpsertEntryInput{FeedID: a.ID, GUID: "a1", ContentHTML: "<p>a</p>", ContentMD: "old"})
	mustUpsert(t, store, UpsertEntryInput{FeedID: a.ID, GUID: "a2"})
	mustUpsert(t, store, UpsertEntryInput{FeedID: b.ID, GUID: "b1", ContentHTML: "<p>b</p>"})

	all, err := store.ListEntriesForRender(ctx, 0)
	if err != nil {
		t.Fatalf("list all for render: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected entries with html only, got %d", len(all))
	}
	onlyA, err := store.ListEntriesForRender(ctx, a.ID)
	if err != nil {
		t.Fatalf("list feed for render: %v", err)
	}
	if len(onlyA) != 1 || onlyA[0].ID != ida {
		t.Fatalf("unexpected feed filter result: %+v", onlyA)
	}

	if err := store.UpdateEntryRenders(ctx, []EntryRender{{ID: ida, ContentMD: "new words", RenderErrors: 3}}); err != nil {
		t.Fatalf("update renders: %v", err)
	}
	got, err := store.GetEntry(ctx, ida)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.ContentMD != "new words" || got.RenderErrors != 3 {
		t.Fatalf("render update not stored: %+v", got)
	}
	hits, err := store.SearchEntries(ctx, SearchOptions{Query: "words"})
	if err != nil || len(hits) != 1 {
		t.Fatalf("expected fts to see new markdown, hits=%d err=%v", len(hits), err)
	}

	err = store.UpdateEntryRenders(ctx, []EntryRender{{ID: ida, ContentMD: "lost"}, {ID: 999}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ = store.GetEntry(ctx, ida)
	if got.ContentMD != "new words" {
		t.Fatalf("failed batch should roll back, got %q", got.ContentMD)
	}
}

func TestStorePruneReadEntriesOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, store, "https://example.com/prune.xml")
	old := ptrTime(time.Now().Add(-72 * 24 * time.Hour))

	oldRead := mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "old-read", PublishedAt: old})
	mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "old-unread", PublishedAt: old})
	newRead := mustUpsert(t, store, UpsertEntryInput{FeedID: feed.ID, GUID: "new-read", PublishedAt: ptrTime(time.Now().Add(-2 * time.Hour))})

	if err := store.SetEntriesRead(ctx, []int64{oldRead, newRead}, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	pruned, err := store.PruneReadEntriesOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected exactly one entry pruned, got %d", pruned)
	}
	if _, err := store.GetEntry(ctx, oldRead); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old read entry should be gone, err=%v", err)
	}
}

func TestStoreNotFoundErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.DeleteFeed(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteFeed err=%v, want ErrNotFound", err)
	}
	if _, err := s.GetFeedByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetFeedByID err=%v, want ErrNotFound", err)
	}
	id := int64(999)
	if _, err := s.ListFeedsForFetch(ctx, &id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ListFeedsForFetch err=%v, want ErrNotFound", err)
	}
	if _, err := s.GetEntry(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetEntry err=%v, want ErrNotFound", err)
	}
	if err := s.UpdateEntryRead(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateEntryRead err=%v, want ErrNotFound", err)
	}
}

func TestStoreInvalidInputErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ListEntries(ctx, EntryListOptions{Status: "starred"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ListEntries err=%v, want ErrInvalidInput", err)
	}
	if _, err := s.SearchEntries(ctx, SearchOptions{Query: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("SearchEntries err=%v, want ErrInvalidInput", err)
	}
	if _, _, err := s.CreateFeed(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("CreateFeed err=%v, want ErrInvalidInput", err)
	}
	if _, _, err := s.UpsertEntry(ctx, UpsertEntryInput{FeedID: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("UpsertEntry err=%v, want ErrInvalidInput", err)
	}
}
