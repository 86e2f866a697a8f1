package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const defaultListLimit = 50

// UpsertEntry inserts or refreshes the entry keyed by (feed, guid). Read state
// survives a refresh.
func (s *Store) UpsertEntry(ctx context.Context, in UpsertEntryInput) (entryID int64, inserted bool, err error) {
	if in.FeedID <= 0 || strings.TrimSpace(in.GUID) == "" {
		return 0, false, fmt.Errorf("%w: entry needs a feed and a guid", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `SELECT id FROM entries WHERE feed_id = ? AND guid = ?`, in.FeedID, in.GUID).Scan(&entryID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		inserted = true
	case err != nil:
		return 0, false, err
	}

	if inserted {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			INSERT INTO entries (
				feed_id, guid, url, title, summary, content_html, content_md,
				image_url, author, published_at, date_modified, render_errors
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, in.FeedID, in.GUID, in.URL, in.Title, in.Summary, in.ContentHTML, in.ContentMD,
			in.ImageURL, in.Author, timeToDBString(in.PublishedAt), timeToDBString(in.DateModified), in.RenderErrors)
		if err != nil {
			return 0, false, err
		}
		if entryID, err = res.LastInsertId(); err != nil {
			return 0, false, err
		}
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO entry_status(entry_id) VALUES (?)`, entryID); err != nil {
			return 0, false, err
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE entries SET
				url = ?, title = ?, summary = ?, content_html = ?, content_md = ?,
				image_url = ?, author = ?, published_at = ?, date_modified = ?,
				render_errors = ?, fetched_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, in.URL, in.Title, in.Summary, in.ContentHTML, in.ContentMD,
			in.ImageURL, in.Author, timeToDBString(in.PublishedAt), timeToDBString(in.DateModified),
			in.RenderErrors, entryID)
		if err != nil {
			return 0, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, false, err
	}
	return entryID, inserted, nil
}

func statusClause(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "unread":
		return "COALESCE(es.read, 0) = 0", nil
	case "read":
		return "COALESCE(es.read, 0) = 1", nil
	case "all":
		return "", nil
	}
	return "", fmt.Errorf("%w: invalid status %q (expected unread|read|all)", ErrInvalidInput, status)
}

func (s *Store) ListEntries(ctx context.Context, opts EntryListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	clause, err := statusClause(opts.Status)
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if opts.FeedID > 0 {
		where = append(where, "e.feed_id = ?")
		args = append(args, opts.FeedID)
	}
	if clause != "" {
		where = append(where, clause)
	}

	query := `SELECT ` + entryColumns + entryFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY CASE WHEN e.published_at IS NULL OR e.published_at = '' THEN 1 ELSE 0 END,
			COALESCE(e.published_at, e.fetched_at) DESC
		LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *Store) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+entryFrom+` WHERE e.id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, wrapNotFound(fmt.Sprintf("entry %d", id), err)
	}
	return entry, nil
}

func (s *Store) SearchEntries(ctx context.Context, opts SearchOptions) ([]Entry, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}

	where := "entries_fts MATCH ?"
	args := []any{opts.Query}
	if opts.Feed > 0 {
		where += " AND e.feed_id = ?"
		args = append(args, opts.Feed)
	}
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries_fts
		JOIN entries e ON e.id = entries_fts.rowid
		JOIN feeds f ON f.id = e.feed_id
		LEFT JOIN entry_status es ON es.entry_id = e.id
		WHERE `+where+`
		ORDER BY bm25(entries_fts), COALESCE(e.published_at, e.fetched_at) DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListEntriesForRender returns the entries whose Markdown can be re-derived,
// optionally limited to one feed.
func (s *Store) ListEntriesForRender(ctx context.Context, feedID int64) ([]Entry, error) {
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE COALESCE(e.content_html, '') <> ''`
	var args []any
	if feedID > 0 {
		query += ` AND e.feed_id = ?`
		args = append(args, feedID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY e.id`, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// UpdateEntryRenders stores re-derived Markdown for existing entries in one
// transaction.
func (s *Store) UpdateEntryRenders(ctx context.Context, renders []EntryRender) (err error) {
	if len(renders) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `UPDATE entries SET content_md = ?, render_errors = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range renders {
		res, execErr := stmt.ExecContext(ctx, r.ContentMD, r.RenderErrors, r.ID)
		if execErr != nil {
			return execErr
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFoundID("entry", r.ID)
		}
	}
	return tx.Commit()
}

func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM feeds),
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entry_status WHERE read = 0),
			(SELECT COALESCE(SUM(render_errors), 0) FROM entries)
	`).Scan(&stats.Feeds, &stats.Total, &stats.Unread, &stats.RenderErrors)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// PruneReadEntriesOlderThan deletes read entries published (or fetched) more
// than days ago. Stored timestamps come in several layouts, so the cutoff is
// compared in Go.
func (s *Store) PruneReadEntriesOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}

	cutoff := timestampBeforeDays(days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, COALESCE(e.published_at, e.fetched_at)
		FROM entries e
		JOIN entry_status es ON es.entry_id = e.id
		WHERE es.read = 1
	`)
	if err != nil {
		return 0, err
	}
	var ids []any
	for rows.Next() {
		var id int64
		var ts string
		if err := rows.Scan(&id, &ts); err != nil {
			rows.Close()
			return 0, err
		}
		if t, err := parseDBTime(ts); err == nil && t.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
