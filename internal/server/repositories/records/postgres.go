package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec models.Record) error {
	query :=
		`INSERT INTO records (user_id, type, id, cid, body, last_mod)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, type, id) DO UPDATE
		 SET cid = EXCLUDED.cid, body = EXCLUDED.body, last_mod = EXCLUDED.last_mod`

	_, err := r.db.ExecContext(ctx, query, rec.UserID, rec.Type, rec.ID, rec.CID, rec.Body, rec.LastMod)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, recordType, id string) (*models.Record, error) {
	query :=
		`SELECT user_id, type, id, cid, body, last_mod FROM records
		 WHERE user_id = $1 AND type = $2 AND id = $3`

	rec := &models.Record{}
	err := r.db.QueryRowContext(ctx, query, userID, recordType, id).
		Scan(&rec.UserID, &rec.Type, &rec.ID, &rec.CID, &rec.Body, &rec.LastMod)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, recordType, id string) error {
	query :=
		`DELETE FROM records
		 WHERE user_id = $1 AND type = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, userID, recordType, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectAffected(res, 1); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, userID string, since int64) ([]models.Record, error) {
	query :=
		`SELECT user_id, type, id, cid, body, last_mod FROM records
		 WHERE user_id = $1 AND last_mod > $2
		 ORDER BY last_mod`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.UserID, &rec.Type, &rec.ID, &rec.CID, &rec.Body, &rec.LastMod); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
