// Package masterpassword persists the singleton master password record.
package masterpassword

import (
	"context"

	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

// Repository stores the at-most-one master password record.
//
// LoadLatest returns common.ErrorNotFound when no record exists. Save
// returns common.ErrConflict when a record already exists.
type Repository interface {
	LoadLatest(ctx context.Context) (*models.MasterPassword, error)
	Save(ctx context.Context, mp *models.MasterPassword) error
}
