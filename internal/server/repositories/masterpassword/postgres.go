package masterpassword

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/dbx"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LoadLatest(ctx context.Context) (*models.MasterPassword, error) {
	query :=
		`SELECT id, verification_hash, salt, iterations, created_at FROM master_password
		 ORDER BY id ASC
		 LIMIT 1
		 `

	mp := &models.MasterPassword{}
	err := r.db.QueryRowContext(ctx, query).Scan(&mp.ID, &mp.VerificationHash, &mp.Salt, &mp.Iterations, &mp.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return mp, nil
}

func (r *PostgresRepository) Save(ctx context.Context, mp *models.MasterPassword) error {
	query :=
		`INSERT INTO master_password (verification_hash, salt, iterations)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		mp.VerificationHash, mp.Salt, mp.Iterations).Scan(&mp.ID, &mp.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
