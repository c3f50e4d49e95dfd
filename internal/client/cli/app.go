package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

const logFileName = "client.log"

type authService interface {
	Register(ctx context.Context, email, username string, password []byte) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Restore(ctx context.Context) (*models.User, error)
}

type userService interface {
	List(ctx context.Context, page, limit int) (*models.UserPage, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type sessionState interface {
	IsAuthenticated() bool
	Identity() session.Identity
}

type App struct {
	config  *config.Config
	auth    authService
	users   userService
	session sessionState
	reader  *bufio.Reader
	out     io.Writer

	db      *sql.DB
	logFile *os.File
}

// NewApp opens the session store next to c.SessionFile, loads any saved
// session and builds the API client around it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := session.OpenDB(ctx, c.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("error opening session store: %w", err)
	}

	logPath, err := filex.EnsureFileDir(filepath.Join(filepath.Dir(c.SessionFile), logFileName))
	if err != nil {
		db.Close()
		return nil, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	logger := logging.NewJSONLogger(logFile, "production")

	sm := session.NewManager(db)
	if err := sm.Load(ctx); err != nil {
		logger.Warn(ctx, "saved session could not be loaded", "error", err)
	}

	api := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout, sm,
		client.WithLogger(logger),
		client.WithAuthFailureHandler(func() {
			printlnFn("Session expired, please log in")
		}),
	)

	return &App{
		config:  c,
		auth:    services.NewAuthService(api, sm),
		users:   services.NewUserService(api, sm),
		session: sm,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		db:      db,
		logFile: logFile,
	}, nil
}

// Run restores the saved session, if any, and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to gophauth CLI (type 'help' for commands)")
	a.restore(ctx)
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func (a *App) restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	u, err := a.auth.Restore(ctx)
	switch {
	case err != nil && a.isLoggedIn():
		printlnFn("Could not verify saved session:", err)
	case err != nil:
		printlnFn("Saved session is no longer valid:", err)
	case u != nil:
		printlnFn("Logged in as", u.Username)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(guest)"
	}
	return fmt.Sprintf("(%s)", a.session.Identity().Email)
}
