package personas

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]models.Persona, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, email, last_mod FROM personas WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var result []models.Persona
	for rows.Next() {
		var p models.Persona
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.LastMod); err != nil {
			return nil, fmt.Errorf("failed to scan persona row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persona rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Persona) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personas (id, user_id, name, email, last_mod) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			email = excluded.email,
			last_mod = excluded.last_mod
	`, p.ID, p.UserID, p.Name, p.Email, p.LastMod)
	if err != nil {
		return fmt.Errorf("failed to upsert persona[%s]: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete persona[%s]: %w", id, err)
	}
	return nil
}
