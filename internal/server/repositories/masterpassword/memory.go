package masterpassword

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

// MemoryRepository keeps the record in process memory. It enforces the same
// singleton rule as the Postgres schema.
type MemoryRepository struct {
	mu     sync.RWMutex
	record *models.MasterPassword
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) LoadLatest(ctx context.Context) (*models.MasterPassword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.record == nil {
		return nil, common.ErrorNotFound
	}
	return clone(r.record), nil
}

func (r *MemoryRepository) Save(ctx context.Context, mp *models.MasterPassword) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.record != nil {
		return common.ErrConflict
	}
	mp.ID = 1
	mp.CreatedAt = time.Now()
	r.record = clone(mp)
	return nil
}

func clone(mp *models.MasterPassword) *models.MasterPassword {
	cp := *mp
	cp.VerificationHash = bytes.Clone(mp.VerificationHash)
	cp.Salt = bytes.Clone(mp.Salt)
	return &cp
}
