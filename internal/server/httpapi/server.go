// Package httpapi exposes the user service as a JSON REST API on top of gin.
//
// Every response uses the same envelope:
//
//	{"success": true, "data": ..., "message": "..."}
//
// Routes under <prefix>/users require an "Authorization: Bearer <access token>" header.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// UserService is implemented by *services.UserService.
type UserService interface {
	Register(ctx context.Context, email, username, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, page, limit int) (*services.UserList, error)
	UpdateUser(ctx context.Context, actorID, id string, in services.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}

// AccessVerifier is implemented by *auth.TokenManager.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.UserClaims, error)
}

type Options struct {
	APIPrefix      string
	CORSOrigin     string
	Environment    string
	RequestTimeout time.Duration
}

type HTTPServer struct {
	address  string
	users    UserService
	verifier AccessVerifier
	logger   logging.Logger
	opts     Options
	engine   *gin.Engine
}

func NewHTTPServer(a string, l logging.Logger, us UserService, v AccessVerifier, opts Options) *HTTPServer {
	s := &HTTPServer{
		address:  a,
		logger:   l.With("module", "http_server"),
		users:    us,
		verifier: v,
		opts:     opts,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = false

	r.Use(
		s.recoveryMiddleware(),
		requestIDMiddleware(),
		s.requestLoggerMiddleware(),
		securityHeadersMiddleware(),
		corsMiddleware(s.opts.CORSOrigin),
		timeoutMiddleware(s.opts.RequestTimeout),
	)

	r.GET("/health", s.health)

	api := r.Group(s.opts.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)

	usersGroup := api.Group("/users", s.accessTokenMiddleware())
	usersGroup.GET("", s.listUsers)
	usersGroup.GET("/me", s.currentUser)
	usersGroup.GET("/:id", s.getUser)
	usersGroup.PUT("/:id", s.updateUser)
	usersGroup.DELETE("/:id", s.deleteUser)

	r.NoRoute(s.notFound)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address, "prefix", s.opts.APIPrefix)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
