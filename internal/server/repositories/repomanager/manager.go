package repomanager

import (
	"context"
	"database/sql"

	"github.com/kaplunov-alex/PWMgr/internal/dbx"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/entries"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/masterpassword"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	MasterPasswords(db dbx.DBTX) masterpassword.Repository
	Entries(db dbx.DBTX) entries.Repository
}
