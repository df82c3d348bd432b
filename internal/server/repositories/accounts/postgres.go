package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, auth)
		 VALUES ($1, $2)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, acc.ID, acc.Auth).Scan(&acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}

func (r *PostgresRepository) GetByAuth(ctx context.Context, auth string) (*models.Account, error) {
	query :=
		`SELECT id, auth, created_at FROM accounts
		 WHERE auth = $1`

	return r.get(ctx, query, auth)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, auth, created_at FROM accounts
		 WHERE id = $1`

	return r.get(ctx, query, id)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg string) (*models.Account, error) {
	acc := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&acc.ID, &acc.Auth, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}
