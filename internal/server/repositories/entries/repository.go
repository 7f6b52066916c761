// Package entries persists password entries. Secret fields arrive already
// encrypted; this package never sees plaintext.
package entries

import (
	"context"

	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Entry) (*models.Entry, error)
	Update(ctx context.Context, e *models.Entry) (*models.Entry, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Entry, error)
	// List returns every entry ordered by site name.
	List(ctx context.Context) ([]*models.Entry, error)
	// Search matches query case-insensitively against site name and username.
	Search(ctx context.Context, query string) ([]*models.Entry, error)
}
