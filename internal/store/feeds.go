package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CreateFeed inserts url if it is not already subscribed. The bool reports
// whether a new row was created.
func (s *Store) CreateFeed(ctx context.Context, url string) (Feed, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Feed{}, false, fmt.Errorf("%w: feed url must not be empty", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO feeds(url) VALUES (?)`, url)
	if err != nil {
		return Feed{}, false, err
	}
	n, _ := res.RowsAffected()
	feed, err := s.GetFeedByURL(ctx, url)
	if err != nil {
		return Feed{}, false, err
	}
	return feed, n > 0, nil
}

func (s *Store) GetFeedByURL(ctx context.Context, url string) (Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds f WHERE f.url = ?`, url)
	feed, err := scanFeed(row, false)
	if err != nil {
		return Feed{}, wrapNotFound("feed", err)
	}
	return feed, nil
}

func (s *Store) GetFeedByID(ctx context.Context, id int64) (Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds f WHERE f.id = ?`, id)
	feed, err := scanFeed(row, false)
	if err != nil {
		return Feed{}, wrapNotFound(fmt.Sprintf("feed %d", id), err)
	}
	return feed, nil
}

// DeleteFeed removes a feed together with its entries.
func (s *Store) DeleteFeed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundID("feed", id)
	}
	return nil
}

func (s *Store) ListFeedsWithCounts(ctx context.Context) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feedColumns+`, `+feedCountColumns+`
		FROM feeds f
		LEFT JOIN entries e ON e.feed_id = f.id
		LEFT JOIN entry_status es ON es.entry_id = e.id
		GROUP BY f.id
		ORDER BY COALESCE(NULLIF(f.title, ''), f.url) COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	return collectFeeds(rows, true)
}

// ListFeedsForFetch returns every feed, or only feed id when id is non-nil.
func (s *Store) ListFeedsForFetch(ctx context.Context, id *int64) ([]Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds f`
	var args []any
	if id != nil {
		query += ` WHERE f.id = ?`
		args = append(args, *id)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY f.id`, args...)
	if err != nil {
		return nil, err
	}
	feeds, err := collectFeeds(rows, false)
	if err != nil {
		return nil, err
	}
	if id != nil && len(feeds) == 0 {
		return nil, notFoundID("feed", *id)
	}
	return feeds, nil
}

// FeedFetch carries the metadata recorded after a successful fetch. Empty
// title, site and description leave the stored values in place.
type FeedFetch struct {
	Title        string
	SiteURL      string
	Description  string
	ETag         string
	LastModified string
	FetchedAt    time.Time
}

func (s *Store) UpdateFeedFetchSuccess(ctx context.Context, feedID int64, in FeedFetch) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feeds
		SET
			title = COALESCE(NULLIF(?, ''), title),
			site_url = COALESCE(NULLIF(?, ''), site_url),
			description = COALESCE(NULLIF(?, ''), description),
			etag = ?,
			last_modified = ?,
			last_fetched_at = ?,
			last_error = NULL,
			error_count = 0
		WHERE id = ?
	`, in.Title, in.SiteURL, in.Description, in.ETag, in.LastModified,
		in.FetchedAt.UTC().Format(time.RFC3339Nano), feedID)
	return err
}

func (s *Store) SetFeedError(ctx context.Context, feedID int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_error = ?, error_count = error_count + 1
		WHERE id = ?
	`, truncate(errMsg, 500), feedID)
	return err
}

// Staleness summarizes how recently any feed was fetched.
type Staleness struct {
	HasFeeds    bool
	Stale       bool
	LastFetched *time.Time
}

func (s *Store) GetFetchStaleness(ctx context.Context, staleAfter time.Duration) (Staleness, error) {
	var count int
	var maxFetched sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(last_fetched_at) FROM feeds`).Scan(&count, &maxFetched); err != nil {
		return Staleness{}, err
	}
	if count == 0 {
		return Staleness{}, nil
	}
	st := Staleness{HasFeeds: true, Stale: true}
	st.LastFetched = optionalDBTime(maxFetched.String, maxFetched.Valid)
	if st.LastFetched != nil {
		st.Stale = time.Since(*st.LastFetched) > staleAfter
	}
	return st, nil
}

// ListFeedURLs returns the fields needed for OPML export, titled by url when
// the feed has no title yet.
func (s *Store) ListFeedURLs(ctx context.Context) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, COALESCE(NULLIF(title, ''), url), COALESCE(site_url, '')
		FROM feeds
		ORDER BY COALESCE(NULLIF(title, ''), url) COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feeds := make([]Feed, 0)
	for rows.Next() {
		var feed Feed
		if err := rows.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.SiteURL); err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}
