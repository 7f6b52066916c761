// Package auth ties key derivation, the login rate limiter and the master
// password record together into setup, login and logout flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/cryptox"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	"github.com/kaplunov-alex/PWMgr/internal/ratelimit"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/masterpassword"
)

const MinMasterPasswordLength = 8

type Service struct {
	repo       masterpassword.Repository
	limiter    *ratelimit.Limiter
	logger     logging.Logger
	iterations int

	setupMu sync.Mutex
}

type Option func(*Service)

// WithIterations sets the PBKDF2 iteration count used for new records.
// Existing records keep the count they were created with.
func WithIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.iterations = n
		}
	}
}

func NewService(repo masterpassword.Repository, limiter *ratelimit.Limiter, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		limiter:    limiter,
		logger:     logger.With("module", "auth"),
		iterations: cryptox.DefaultIterations,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) IsSetupRequired(ctx context.Context) (bool, error) {
	_, err := s.repo.LoadLatest(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// SetupMasterPassword creates the master password record. It succeeds at
// most once per deployment.
func (s *Service) SetupMasterPassword(ctx context.Context, password string) error {
	if utf8.RuneCountInString(password) < MinMasterPasswordLength {
		return fmt.Errorf("%w: master password must be at least %d characters", common.ErrValidation, MinMasterPasswordLength)
	}

	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	required, err := s.IsSetupRequired(ctx)
	if err != nil {
		return err
	}
	if !required {
		return common.ErrConflict
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return err
	}

	record := &models.MasterPassword{
		VerificationHash: cryptox.DeriveVerificationHash(password, salt, s.iterations),
		Salt:             salt,
		Iterations:       s.iterations,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return err
	}

	s.logger.Info(ctx, "master password configured")
	return nil
}

// ErrNoSession is returned by Authenticate when no session is given to bind
// the key to.
var ErrNoSession = errors.New("no session to authenticate")

// Authenticate checks password for clientID and, on success, binds the
// derived key to session. A blocked client is refused before any key
// derivation happens.
func (s *Service) Authenticate(ctx context.Context, password, clientID string, session Session) (bool, error) {
	if session == nil {
		return false, ErrNoSession
	}

	if s.limiter.IsBlocked(clientID) {
		retry := s.limiter.RetryAfter(clientID)
		s.logger.Warn(ctx, "login refused, client locked out", "client", clientID, "retry_after", retry)
		return false, &common.RateLimitedError{RetryAfter: retry}
	}

	record, err := s.repo.LoadLatest(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return false, common.ErrNotConfigured
	}
	if err != nil {
		return false, err
	}

	key := cryptox.DeriveKey(password, record.Salt, record.Iterations)
	if !cryptox.VerifyHash(record.VerificationHash, cryptox.MakeVerifier(key)) {
		common.WipeByteArray(key)
		s.limiter.RecordFailure(clientID)
		s.logger.Warn(ctx, "login failed", "client", clientID, "remaining_attempts", s.limiter.RemainingAttempts(clientID))
		return false, nil
	}

	s.limiter.RecordSuccess(clientID)
	session.SetKey(&SessionKeyContext{Key: key})
	s.logger.Info(ctx, "login succeeded", "client", clientID)
	return true, nil
}

func (s *Service) Logout(session Session) {
	if session == nil {
		return
	}
	session.Invalidate()
}

// SessionKey returns a copy of the key bound to session, if any. The caller
// should wipe it with common.WipeByteArray once done.
func (s *Service) SessionKey(session Session) ([]byte, bool) {
	if session == nil {
		return nil, false
	}
	kc, ok := session.Key()
	if !ok || kc == nil || len(kc.Key) == 0 {
		return nil, false
	}
	return kc.Key, true
}

func (s *Service) IsAuthenticated(session Session) bool {
	key, ok := s.SessionKey(session)
	common.WipeByteArray(key)
	return ok
}

func (s *Service) RemainingAttempts(clientID string) int {
	return s.limiter.RemainingAttempts(clientID)
}
