package store

import (
	"database/sql"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const feedColumns = `f.id, f.url, f.site_url, f.title, f.description, f.last_fetched_at,
	f.etag, f.last_modified, f.last_error, f.error_count, f.created_at`

const feedCountColumns = `
	COALESCE(SUM(CASE WHEN e.id IS NOT NULL AND COALESCE(es.read, 0) = 0 THEN 1 ELSE 0 END), 0),
	COUNT(e.id)`

func scanFeed(scanner rowScanner, withCounts bool) (Feed, error) {
	var f Feed
	var siteURL, title, desc, lastFetched, etag, lastMod, lastErr sql.NullString
	var createdAt string
	dest := []any{
		&f.ID, &f.URL, &siteURL, &title, &desc, &lastFetched,
		&etag, &lastMod, &lastErr, &f.ErrorCount, &createdAt,
	}
	if withCounts {
		dest = append(dest, &f.UnreadCount, &f.TotalCount)
	}
	if err := scanner.Scan(dest...); err != nil {
		return Feed{}, err
	}
	f.SiteURL = siteURL.String
	f.Title = title.String
	f.Description = desc.String
	f.ETag = etag.String
	f.LastModified = lastMod.String
	f.LastError = lastErr.String
	f.LastFetchedAt = optionalDBTime(lastFetched.String, lastFetched.Valid)
	if t, err := parseDBTime(createdAt); err == nil {
		f.CreatedAt = t
	}
	return f, nil
}

const entryColumns = `
	e.id, e.feed_id, COALESCE(NULLIF(f.title, ''), f.url), e.guid,
	e.url, e.title, e.summary, e.content_html, e.content_md, e.image_url,
	e.author, e.published_at, e.date_modified, e.fetched_at,
	COALESCE(es.read, 0), e.render_errors
`

const entryFrom = `
	FROM entries e
	JOIN feeds f ON f.id = e.feed_id
	LEFT JOIN entry_status es ON es.entry_id = e.id`

func scanEntry(scanner rowScanner) (Entry, error) {
	var e Entry
	var url, title, summary, contentHTML, contentMD, imageURL, author sql.NullString
	var publishedAt, dateModified sql.NullString
	var fetchedAt string
	if err := scanner.Scan(
		&e.ID, &e.FeedID, &e.FeedTitle, &e.GUID,
		&url, &title, &summary, &contentHTML, &contentMD, &imageURL,
		&author, &publishedAt, &dateModified, &fetchedAt,
		&e.Read, &e.RenderErrors,
	); err != nil {
		return Entry{}, err
	}
	e.URL = url.String
	e.Title = title.String
	e.Summary = summary.String
	e.ContentHTML = contentHTML.String
	e.ContentMD = contentMD.String
	e.ImageURL = imageURL.String
	e.Author = author.String
	e.PublishedAt = optionalDBTime(publishedAt.String, publishedAt.Valid)
	e.DateModified = optionalDBTime(dateModified.String, dateModified.Valid)
	if t, err := parseDBTime(fetchedAt); err == nil {
		e.FetchedAt = t
	}
	return e, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func collectFeeds(rows *sql.Rows, withCounts bool) ([]Feed, error) {
	defer rows.Close()
	feeds := make([]Feed, 0)
	for rows.Next() {
		feed, err := scanFeed(rows, withCounts)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}
