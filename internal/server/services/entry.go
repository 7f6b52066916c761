package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/cryptox"
	"github.com/kaplunov-alex/PWMgr/internal/dbx"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/repomanager"
)

// EntryInput is a plaintext entry as supplied by a client.
type EntryInput struct {
	SiteName string `json:"site_name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Notes    string `json:"notes,omitempty"`
}

// EntryView is a decrypted entry as returned to an authenticated client.
type EntryView struct {
	ID        int64     `json:"id"`
	SiteName  string    `json:"site_name"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryService stores entries encrypted under the caller's session key.
type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewEntryService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *EntryService {
	return &EntryService{
		db:          db,
		repomanager: repomanager,
		logger:      logger.With("module", "entries"),
	}
}

func (in EntryInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.SiteName) == "" {
		missing = append(missing, "site_name")
	}
	if strings.TrimSpace(in.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(in.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must not be blank", common.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// checkKey refuses keys of the wrong size and all-zero keys, which is what
// a wiped session key looks like.
func checkKey(key []byte) error {
	if len(key) != cryptox.KeySize {
		return common.ErrorUnauthorized
	}
	for _, b := range key {
		if b != 0 {
			return nil
		}
	}
	return common.ErrorUnauthorized
}

// seal encrypts the secret fields of in, each under its own nonce.
func seal(in EntryInput, key []byte) (*models.Entry, error) {
	password, err := cryptox.EncryptString(in.Password, key)
	if err != nil {
		return nil, err
	}

	e := &models.Entry{
		SiteName:          in.SiteName,
		Username:          in.Username,
		EncryptedPassword: password,
	}

	if in.Notes != "" {
		e.EncryptedNotes, err = cryptox.EncryptString(in.Notes, key)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

func open(e *models.Entry, key []byte) (*EntryView, error) {
	password, err := cryptox.DecryptString(e.EncryptedPassword, key)
	if err != nil {
		return nil, fmt.Errorf("entry %d password: %w", e.ID, err)
	}

	v := &EntryView{
		ID:        e.ID,
		SiteName:  e.SiteName,
		Username:  e.Username,
		Password:  password,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	if e.EncryptedNotes != "" {
		v.Notes, err = cryptox.DecryptString(e.EncryptedNotes, key)
		if err != nil {
			return nil, fmt.Errorf("entry %d notes: %w", e.ID, err)
		}
	}

	return v, nil
}

func openAll(list []*models.Entry, key []byte) ([]*EntryView, error) {
	result := make([]*EntryView, 0, len(list))
	for _, e := range list {
		v, err := open(e, key)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *EntryService) Create(ctx context.Context, key []byte, in EntryInput) (*EntryView, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	e, err := seal(in, key)
	if err != nil {
		return nil, err
	}

	saved, err := s.repomanager.Entries(s.db).Create(ctx, e)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "entry created", "id", saved.ID)
	return open(saved, key)
}

// Update replaces every field of entry id. Empty notes clear stored notes.
func (s *EntryService) Update(ctx context.Context, key []byte, id int64, in EntryInput) (*EntryView, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	e, err := seal(in, key)
	if err != nil {
		return nil, err
	}
	e.ID = id

	saved, err := s.repomanager.Entries(s.db).Update(ctx, e)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "entry updated", "id", id)
	return open(saved, key)
}

func (s *EntryService) Get(ctx context.Context, key []byte, id int64) (*EntryView, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	e, err := s.repomanager.Entries(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return open(e, key)
}

// List returns all entries ordered by site name.
func (s *EntryService) List(ctx context.Context, key []byte) ([]*EntryView, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Entries(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	return openAll(list, key)
}

// Search matches query against site names and usernames. A blank query
// behaves like List.
func (s *EntryService) Search(ctx context.Context, key []byte, query string) ([]*EntryView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, key)
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Entries(s.db).Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return openAll(list, key)
}

func (s *EntryService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Entries(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "entry deleted", "id", id)
	return nil
}

// Snapshot returns every stored entry, still encrypted, read from one
// consistent view of the table.
func (s *EntryService) Snapshot(ctx context.Context) ([]*models.Entry, error) {
	var list []*models.Entry

	err := dbx.WithTx(ctx, s.db, dbx.ReadOnlySnapshot,
		func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			list, err = s.repomanager.Entries(tx).List(ctx)
			return err
		})
	if err != nil {
		return nil, err
	}

	return list, nil
}
