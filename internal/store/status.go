package store

import (
	"context"
	"database/sql"
	"errors"
)

const (
	markReadQuery   = `UPDATE entry_status SET read = 1, read_at = CURRENT_TIMESTAMP WHERE entry_id = ?`
	markUnreadQuery = `UPDATE entry_status SET read = 0, read_at = NULL WHERE entry_id = ?`
)

func (s *Store) UpdateEntryRead(ctx context.Context, id int64, read bool) error {
	return s.SetEntriesRead(ctx, []int64{id}, read)
}

// SetEntriesRead updates all ids or none. An unknown id fails the batch with
// ErrNotFound.
func (s *Store) SetEntriesRead(ctx context.Context, ids []int64, read bool) (err error) {
	if len(ids) == 0 {
		return nil
	}
	update := markUnreadQuery
	if read {
		update = markReadQuery
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

	ensure, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO entry_status(entry_id) VALUES (?)`)
	if err != nil {
		return err
	}
	defer ensure.Close()
	upd, err := tx.PrepareContext(ctx, update)
	if err != nil {
		return err
	}
	defer upd.Close()

	for _, id := range ids {
		var one int
		if err = tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFoundID("entry", id)
			}
			return err
		}
		if _, err = ensure.ExecContext(ctx, id); err != nil {
			return err
		}
		if _, err = upd.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
