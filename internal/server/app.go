// Package server wires configuration, storage, token handling and the HTTP
// API together and runs them until the process is asked to stop.
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

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

const startupTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	tokens      *auth.TokenManager
	userService *services.UserService
}

// NewApp validates c, connects to the store, applies migrations and builds
// the services. The database is reachable once NewApp returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.Environment)

	if !c.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	m, db, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := prepareDB(ctx, m, db); err != nil {
		closeDB(db)
		return nil, err
	}
	if db == nil {
		logger.Warn(ctx, "Using in-memory user store, data is lost on restart")
	} else {
		logger.Info(ctx, "Database connection established")
	}

	hasher, err := cryptox.NewPasswordHasher(c.PasswordHashAlgorithm, c.BcryptCost)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	tm, err := auth.NewTokenManager(c.AccessSecretKey, c.RefreshSecretKey, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	us := services.NewUserService(db, m, tm, hasher)

	return &App{config: c, logger: logger, db: db, tokens: tm, userService: us}, nil
}

func prepareDB(ctx context.Context, m repomanager.RepositoryManager, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if db != nil {
		var now time.Time
		if err := db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
			return fmt.Errorf("db ping error: %w", err)
		}
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("db migration error: %w", err)
	}
	return nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.tokens, httpapi.Options{
		APIPrefix:      app.config.APIPrefix,
		CORSOrigin:     app.config.CORSOrigin,
		Environment:    app.config.Environment,
		RequestTimeout: app.config.RequestTimeout,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	closeDB(app.db)
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
