// Package server wires configuration, storage, the login limiter, sessions
// and the gRPC transport into a runnable vault server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	"github.com/kaplunov-alex/PWMgr/internal/ratelimit"
	"github.com/kaplunov-alex/PWMgr/internal/server/auth"
	"github.com/kaplunov-alex/PWMgr/internal/server/backup"
	"github.com/kaplunov-alex/PWMgr/internal/server/config"
	"github.com/kaplunov-alex/PWMgr/internal/server/repositories/repomanager"
	"github.com/kaplunov-alex/PWMgr/internal/server/services"
	"github.com/kaplunov-alex/PWMgr/internal/server/session"
	"github.com/kaplunov-alex/PWMgr/internal/server/shared/db"
	"golang.org/x/time/rate"

	gs "github.com/kaplunov-alex/PWMgr/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	limiterStore *ratelimit.ShardedStore
	sessions     *session.Store
	tokens       *session.Tokens
	authService  *auth.Service
	entryService *services.EntryService
	backup       *backup.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	conn, err := db.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	secret := c.SecretKey
	if secret == "" {
		secret, err = common.MakeRandHexString(32)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		logger.Warn(ctx, "no secret key configured, session tokens will not survive a restart")
	}

	store := ratelimit.NewShardedStore(ratelimit.DefaultShards, ratelimit.WithIdleTTL(c.RateLimitIdleTTL))
	limiter := ratelimit.New(store,
		ratelimit.WithMaxAttempts(c.MaxAttempts),
		ratelimit.WithLockoutDuration(c.LockoutDuration))

	as := auth.NewService(rm.MasterPasswords(conn), limiter, logger, auth.WithIterations(c.PBKDF2Iterations))
	es := services.NewEntryService(conn, rm, logger)

	return &App{
		config:       c,
		logger:       logger,
		db:           conn,
		limiterStore: store,
		sessions:     session.NewStore(session.WithIdleTTL(c.SessionIdleTTL)),
		tokens:       session.NewTokens([]byte(secret), c.TokenTTL),
		authService:  as,
		entryService: es,
		backup:       backup.NewService(es, c, logger),
	}, nil
}

// Auth exposes the authentication service for out-of-band bootstrap.
func (app *App) Auth() *auth.Service {
	return app.authService
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	var throttle *rate.Limiter
	if app.config.RequestsPerSecond > 0 {
		throttle = rate.NewLimiter(rate.Limit(app.config.RequestsPerSecond), app.config.RequestBurst)
	}

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Deps{
		Auth:     app.authService,
		Entries:  app.entryService,
		Backup:   app.backup,
		Sessions: app.sessions,
		Tokens:   app.tokens,
		Throttle: throttle,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweep drops idle sessions and stale limiter entries.
func (app *App) sweep(ctx context.Context, now time.Time) {
	sessions := app.sessions.Sweep(now)
	clients := app.limiterStore.Sweep(now)
	if sessions > 0 || clients > 0 {
		app.logger.Debug(ctx, "sweep", "sessions", sessions, "clients", clients)
	}
}

func (app *App) runSweeper(ctx context.Context) {
	interval := app.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			app.sweep(ctx, now)
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runSweeper(ctx)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
