package masterpassword

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectQuery = `(?s)^SELECT\s+id,\s*verification_hash,\s*salt,\s*iterations,\s*created_at\s+FROM\s+master_password\s+ORDER\s+BY\s+id\s+ASC\s+LIMIT\s+1\s*$`
	insertQuery = `(?s)^INSERT\s+INTO\s+master_password\s*\(verification_hash,\s*salt,\s*iterations\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestLoadLatest_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "verification_hash", "salt", "iterations", "created_at"}).
		AddRow(int64(1), []byte("hash"), []byte("salt"), 600000, created)
	mock.ExpectQuery(selectQuery).WillReturnRows(rows)

	got, err := repo.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.MasterPassword{
		ID: 1, VerificationHash: []byte("hash"), Salt: []byte("salt"), Iterations: 600000, CreatedAt: created,
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLatest_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadLatest(context.Background())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoadLatest_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).WillReturnError(errors.New("db down"))

	_, err := repo.LoadLatest(context.Background())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestSave_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now().UTC()
	mock.ExpectQuery(insertQuery).
		WithArgs([]byte("hash"), []byte("salt"), 600000).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	mp := &models.MasterPassword{VerificationHash: []byte("hash"), Salt: []byte("salt"), Iterations: 600000}
	require.NoError(t, repo.Save(context.Background(), mp))
	assert.Equal(t, int64(7), mp.ID)
	assert.Equal(t, created, mp.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UniqueViolationIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs([]byte("hash"), []byte("salt"), 600000).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.Save(context.Background(), &models.MasterPassword{VerificationHash: []byte("hash"), Salt: []byte("salt"), Iterations: 600000})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSave_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).WillReturnError(errors.New("boom"))

	err := repo.Save(context.Background(), &models.MasterPassword{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}
