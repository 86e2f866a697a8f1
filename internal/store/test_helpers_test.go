package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "feedmd.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewStore(db)
}

func mustCreateFeed(t *testing.T, store *Store, url string) Feed {
	t.Helper()
	feed, _, err := store.CreateFeed(context.Background(), url)
	if err != nil {
		t.Fatalf("create feed: %v", err)
	}
	return feed
}

func mustUpsert(t *testing.T, store *Store, in UpsertEntryInput) int64 {
	t.Helper()
	id, _, err := store.UpsertEntry(context.Background(), in)
	if err != nil {
		t.Fatalf("upsert %s: %v", in.GUID, err)
	}
	return id
}

func ptrTime(t time.Time) *time.Time {
	tt := t.UTC()
	return &tt
}
