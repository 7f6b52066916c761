package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/cryptox"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	"github.com/kaplunov-alex/PWMgr/internal/ratelimit"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/masterpassword"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIterations = 1000

type fakeSession struct {
	key         *SessionKeyContext
	invalidated bool
}

func (s *fakeSession) Key() (*SessionKeyContext, bool) {
	if s.key == nil {
		return nil, false
	}
	return &SessionKeyContext{Key: append([]byte(nil), s.key.Key...)}, true
}

func (s *fakeSession) SetKey(k *SessionKeyContext)     { s.key = k }
func (s *fakeSession) Invalidate() {
	s.key.Wipe()
	s.key = nil
	s.invalidated = true
}

// countingRepo records LoadLatest calls and can inject errors.
type countingRepo struct {
	*masterpassword.MemoryRepository
	loads   atomic.Int32
	loadErr error
	saveErr error
}

func (r *countingRepo) LoadLatest(ctx context.Context) (*models.MasterPassword, error) {
	r.loads.Add(1)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.MemoryRepository.LoadLatest(ctx)
}

func (r *countingRepo) Save(ctx context.Context, mp *models.MasterPassword) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.MemoryRepository.Save(ctx, mp)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *countingRepo, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := &countingRepo{MemoryRepository: masterpassword.NewMemoryRepository()}
	limiter := ratelimit.New(ratelimit.NewShardedStore(4, ratelimit.WithStoreClock(c.Now)), ratelimit.WithClock(c.Now))
	return NewService(repo, limiter, logging.NewNopLogger(), WithIterations(testIterations)), repo, c
}

func TestSetup_ThenLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	required, err := svc.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.True(t, required)

	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))

	required, err = svc.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.False(t, required)

	record, err := repo.MemoryRepository.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Len(t, record.Salt, cryptox.SaltSize)
	assert.Equal(t, testIterations, record.Iterations)
	assert.NotContains(t, string(record.VerificationHash), "SecurePass123")

	s := &fakeSession{}
	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, svc.IsAuthenticated(s))

	key, ok := svc.SessionKey(s)
	require.True(t, ok)
	assert.Equal(t, cryptox.DeriveKey("SecurePass123", record.Salt, testIterations), key)

	s2 := &fakeSession{}
	ok, err = svc.Authenticate(ctx, "wrong", "c1", s2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, svc.IsAuthenticated(s2))
	assert.Equal(t, 4, svc.RemainingAttempts("c1"))
}

func TestSetup_Twice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))
	err := svc.SetupMasterPassword(ctx, "AnotherPass456")
	assert.ErrorIs(t, err, common.ErrConflict)

	s := &fakeSession{}
	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", s)
	require.NoError(t, err)
	assert.True(t, ok, "original password must still work")
}

func TestSetup_TooShort(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SetupMasterPassword(context.Background(), "short")
	assert.ErrorIs(t, err, common.ErrValidation)

	required, err := svc.IsSetupRequired(context.Background())
	require.NoError(t, err)
	assert.True(t, required)
}

func TestSetup_Concurrent(t *testing.T) {
	svc, _, _ := newTestService(t)

	const n = 8
	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.SetupMasterPassword(context.Background(), "SecurePass123")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, common.ErrConflict):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(n-1), conflicted.Load())
}

func TestSetup_RepositoryErrors(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.loadErr = errors.New("db down")
	_, err := svc.IsSetupRequired(context.Background())
	assert.Error(t, err)
	assert.Error(t, svc.SetupMasterPassword(context.Background(), "SecurePass123"))

	repo.loadErr = nil
	repo.saveErr = errors.New("disk full")
	assert.Error(t, svc.SetupMasterPassword(context.Background(), "SecurePass123"))
}

func TestAuthenticate_NotConfigured(t *testing.T) {
	svc, _, _ := newTestService(t)

	s := &fakeSession{}
	ok, err := svc.Authenticate(context.Background(), "whatever", "c1", s)
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	assert.Nil(t, s.key)
}

func TestAuthenticate_LockoutAfterFiveFailures(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		ok, err := svc.Authenticate(ctx, "wrong", "c1", &fakeSession{})
		require.NoError(t, err)
		require.False(t, ok)
	}

	loadsBefore := repo.loads.Load()
	s := &fakeSession{}
	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", s)
	assert.False(t, ok)
	require.ErrorIs(t, err, common.ErrRateLimited)

	var rl *common.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, ratelimit.DefaultLockoutDuration, rl.RetryAfter)
	assert.Equal(t, loadsBefore, repo.loads.Load(), "blocked client must not reach the record")
	assert.Nil(t, s.key)

	ok, err = svc.Authenticate(ctx, "SecurePass123", "c2", &fakeSession{})
	require.NoError(t, err)
	assert.True(t, ok, "other clients are unaffected")

	c.Advance(ratelimit.DefaultLockoutDuration + time.Second)
	ok, err = svc.Authenticate(ctx, "SecurePass123", "c1", s)
	require.NoError(t, err)
	assert.True(t, ok, "lockout expires")
	assert.Equal(t, ratelimit.DefaultMaxAttempts, svc.RemainingAttempts("c1"))
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(ctx, "wrong", "c1", &fakeSession{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.RemainingAttempts("c1"))

	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", &fakeSession{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, svc.RemainingAttempts("c1"))
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))

	s := &fakeSession{}
	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", s)
	require.NoError(t, err)
	require.True(t, ok)

	bound := s.key.Key
	key, _ := svc.SessionKey(s)
	want := append([]byte(nil), key...)
	svc.Logout(s)

	assert.True(t, s.invalidated)
	assert.False(t, svc.IsAuthenticated(s))
	assert.Equal(t, make([]byte, cryptox.KeySize), bound, "session key material is wiped")
	assert.Equal(t, want, key, "a key handed out before logout stays usable")

	svc.Logout(nil)
	assert.False(t, svc.IsAuthenticated(nil))
}

func TestAuthenticate_NilSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetupMasterPassword(ctx, "SecurePass123"))

	_, err := svc.Authenticate(ctx, "wrong", "c1", &fakeSession{})
	require.NoError(t, err)
	require.Equal(t, 4, svc.RemainingAttempts("c1"))

	ok, err := svc.Authenticate(ctx, "SecurePass123", "c1", nil)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, ok)
	assert.Equal(t, 4, svc.RemainingAttempts("c1"), "limiter state is untouched")
}

func TestSessionKeyContext_WipeNil(t *testing.T) {
	var kc *SessionKeyContext
	assert.NotPanics(t, kc.Wipe)
}
