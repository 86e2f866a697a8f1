package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type migration struct {
	name string
	run  func(tx *sql.Tx) error
}

var migrations = []migration{
	{name: "0001_initial_schema", run: migrateInitialSchema},
	{name: "0002_entry_render_columns", run: migrateEntryRenderColumns},
	{name: "0003_fts_rebuild", run: migrateFTSRebuild},
}

var connPragmas = []string{
	`PRAGMA foreign_keys = ON;`,
	`PRAGMA busy_timeout = 5000;`,
	`PRAGMA journal_mode = WAL;`,
}

// OpenDB opens (creating if needed) the SQLite database at path and brings its
// schema up to date.
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range connPragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = m.run(tx); err != nil {
		return err
	}
	if _, err = tx.Exec(
		`INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`,
		m.name, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateInitialSchema(tx *sql.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS feeds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			site_url TEXT,
			title TEXT,
			description TEXT,
			last_fetched_at DATETIME,
			etag TEXT,
			last_modified TEXT,
			last_error TEXT,
			error_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feed_id INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			guid TEXT NOT NULL,
			url TEXT,
			title TEXT,
			summary TEXT,
			content_html TEXT,
			content_md TEXT,
			author TEXT,
			published_at DATETIME,
			date_modified DATETIME,
			fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(feed_id, guid)
		);`,
		`CREATE TABLE IF NOT EXISTS entry_status (
			entry_id INTEGER PRIMARY KEY REFERENCES entries(id) ON DELETE CASCADE,
			read BOOLEAN NOT NULL DEFAULT 0,
			read_at DATETIME
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			title,
			summary,
			content_md,
			content=entries,
			content_rowid=id
		);`,
		`CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts(rowid, title, summary, content_md)
			VALUES (new.id, new.title, new.summary, new.content_md);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, title, summary, content_md)
			VALUES ('delete', old.id, old.title, old.summary, old.content_md);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, title, summary, content_md)
			VALUES ('delete', old.id, old.title, old.summary, old.content_md);
			INSERT INTO entries_fts(rowid, title, summary, content_md)
			VALUES (new.id, new.title, new.summary, new.content_md);
		END;`,
		`CREATE INDEX IF NOT EXISTS idx_entries_feed_published ON entries(feed_id, published_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_entry_status_read ON entry_status(read);`,
	)
}

// migrateEntryRenderColumns adds the cover image and the per-entry count of
// elements the Markdown emitter replaced with error markers.
func migrateEntryRenderColumns(tx *sql.Tx) error {
	cols := []struct{ name, ddl string }{
		{"image_url", `ALTER TABLE entries ADD COLUMN image_url TEXT;`},
		{"render_errors", `ALTER TABLE entries ADD COLUMN render_errors INTEGER NOT NULL DEFAULT 0;`},
	}
	for _, c := range cols {
		ok, err := hasColumn(tx, "entries", c.name)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := tx.Exec(c.ddl); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(tx *sql.Tx, table, target string) (bool, error) {
	rows, err := tx.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == target {
			return true, nil
		}
	}
	return false, rows.Err()
}

func migrateFTSRebuild(tx *sql.Tx) error {
	_, err := tx.Exec(`INSERT INTO entries_fts(entries_fts) VALUES ('rebuild');`)
	return err
}
