package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
)

const rowColumns = `key, id, cid, body, last_mod, local_change`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.UserRow, error) {
	row, err := scanRow(r.db.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM users WHERE key = ?`, models.UserKey))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row, nil
}

// SinceLastMod returns the newest row with last_mod >= watermark.
func (r *SQLiteRepository) SinceLastMod(ctx context.Context, watermark int64) (*models.UserRow, error) {
	row, err := scanRow(r.db.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM users WHERE last_mod >= ? ORDER BY last_mod DESC LIMIT 1`, watermark))
	if err != nil {
		return nil, fmt.Errorf("failed to query user since %d: %w", watermark, err)
	}
	return row, nil
}

// ClaimLocalChange clears the dirty flag and returns the row it was cleared
// on, or nil when the row was clean. The returned row reports
// LocalChange=true, the state the caller claimed.
func (r *SQLiteRepository) ClaimLocalChange(ctx context.Context) (*models.UserRow, error) {
	row, err := scanRow(r.db.QueryRowContext(ctx,
		`UPDATE users SET local_change = 0 WHERE local_change = 1 RETURNING `+rowColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to claim user local change: %w", err)
	}
	if row != nil {
		row.LocalChange = true
	}
	return row, nil
}

// Upsert writes row under its key, models.UserKey when empty.
func (r *SQLiteRepository) Upsert(ctx context.Context, row models.UserRow) error {
	if row.Key == "" {
		row.Key = models.UserKey
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+rowColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			id = excluded.id,
			cid = excluded.cid,
			body = excluded.body,
			last_mod = excluded.last_mod,
			local_change = excluded.local_change
	`, row.Key, row.ID, row.CID, row.Body, row.LastMod, boolToInt(row.LocalChange))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkLocalChange(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET local_change = 1 WHERE key = ?`, models.UserKey)
	if err != nil {
		return fmt.Errorf("failed to mark user local change: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE key = ?`, models.UserKey)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func scanRow(s *sql.Row) (*models.UserRow, error) {
	var (
		row   models.UserRow
		dirty int
	)
	err := s.Scan(&row.Key, &row.ID, &row.CID, &row.Body, &row.LastMod, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.LocalChange = dirty != 0
	return &row, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
