// Package grpc exposes the vault over gRPC as pwmgr.v1.VaultService.
package grpc

import (
	"context"
	"net"

	"github.com/kaplunov-alex/PWMgr/internal/cryptox"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	"github.com/kaplunov-alex/PWMgr/internal/server/auth"
	"github.com/kaplunov-alex/PWMgr/internal/server/backup"
	"github.com/kaplunov-alex/PWMgr/internal/server/services"
	"github.com/kaplunov-alex/PWMgr/internal/server/session"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

type AuthService interface {
	IsSetupRequired(ctx context.Context) (bool, error)
	SetupMasterPassword(ctx context.Context, password string) error
	Authenticate(ctx context.Context, password, clientID string, s auth.Session) (bool, error)
	Logout(s auth.Session)
	SessionKey(s auth.Session) ([]byte, bool)
	IsAuthenticated(s auth.Session) bool
	RemainingAttempts(clientID string) int
}

type EntryService interface {
	Create(ctx context.Context, key []byte, in services.EntryInput) (*services.EntryView, error)
	Update(ctx context.Context, key []byte, id int64, in services.EntryInput) (*services.EntryView, error)
	Get(ctx context.Context, key []byte, id int64) (*services.EntryView, error)
	List(ctx context.Context, key []byte) ([]*services.EntryView, error)
	Search(ctx context.Context, key []byte, query string) ([]*services.EntryView, error)
	Delete(ctx context.Context, id int64) error
	GeneratePassword(length int, opts cryptox.PasswordOptions) (*services.GeneratedPassword, error)
}

type BackupService interface {
	Run(ctx context.Context) (*backup.Result, error)
}

// Deps are the collaborators a GRPCServer dispatches to. Backup and
// Throttle may be nil.
type Deps struct {
	Auth     AuthService
	Entries  EntryService
	Backup   BackupService
	Sessions *session.Store
	Tokens   *session.Tokens
	Throttle *rate.Limiter
}

type GRPCServer struct {
	address  string
	auth     AuthService
	entries  EntryService
	backup   BackupService
	sessions *session.Store
	tokens   *session.Tokens
	throttle *rate.Limiter
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, d Deps) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		auth:     d.Auth,
		entries:  d.Entries,
		backup:   d.Backup,
		sessions: d.Sessions,
		tokens:   d.Tokens,
		throttle: d.Throttle,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.throttleInterceptor, s.sessionInterceptor))
	srv.RegisterService(&vaultServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
