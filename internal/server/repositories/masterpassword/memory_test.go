package masterpassword

import (
	"context"
	"testing"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.LoadLatest(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mp := &models.MasterPassword{VerificationHash: []byte("h"), Salt: []byte("s"), Iterations: 10}
	require.NoError(t, repo.Save(ctx, mp))
	assert.Equal(t, int64(1), mp.ID)

	got, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("h"), got.VerificationHash)
	assert.Equal(t, 10, got.Iterations)

	got.Salt[0] = 'x'
	again, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("s"), again.Salt, "callers must not see each other's copies")

	err = repo.Save(ctx, &models.MasterPassword{VerificationHash: []byte("h2")})
	assert.ErrorIs(t, err, common.ErrConflict)
}
