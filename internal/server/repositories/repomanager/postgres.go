// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/kaplunov-alex/PWMgr/internal/dbx"
	"github.com/kaplunov-alex/PWMgr/internal/server/migrations"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/entries"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/masterpassword"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to a
// caller-supplied handle, so the same manager serves both *sql.DB and *sql.Tx.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) MasterPasswords(db dbx.DBTX) masterpassword.Repository {
	return masterpassword.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
