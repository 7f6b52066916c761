package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/dbx"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, site_name, username, encrypted_password, encrypted_notes, created_at, updated_at FROM password_entries`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	e := &models.Entry{}
	var notes sql.NullString
	if err := row.Scan(&e.ID, &e.SiteName, &e.Username, &e.EncryptedPassword, &notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.EncryptedNotes = notes.String
	return e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	query :=
		`INSERT INTO password_entries (site_name, username, encrypted_password, encrypted_notes)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.SiteName, e.Username, e.EncryptedPassword, nullable(e.EncryptedNotes)).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	query :=
		`UPDATE password_entries
		 SET site_name = $1, username = $2, encrypted_password = $3, encrypted_notes = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.SiteName, e.Username, e.EncryptedPassword, nullable(e.EncryptedNotes), e.ID).Scan(&e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM password_entries WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	query := selectColumns + `
		 WHERE id = $1
		 `

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Entry, error) {
	query := selectColumns + `
		 ORDER BY site_name ASC, id ASC
		 `

	return r.query(ctx, query)
}

func (r *PostgresRepository) Search(ctx context.Context, q string) ([]*models.Entry, error) {
	query := selectColumns + `
		 WHERE site_name ILIKE $1 OR username ILIKE $1
		 ORDER BY site_name ASC, id ASC
		 `

	return r.query(ctx, query, "%"+escapeLike(q)+"%")
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes q match literally inside a LIKE pattern.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
