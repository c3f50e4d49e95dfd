// Package services contains application services for the CLI client.
// This file defines the authentication service: register, login, logout and
// restoring a saved session at startup.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
)

// API is implemented by *client.HTTPClient.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) (*models.Envelope, error)
}

// Session is implemented by *session.Manager.
type Session interface {
	Start(ctx context.Context, id session.Identity, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
	Identity() session.Identity
	IsAuthenticated() bool
}

type AuthService struct {
	api     API
	session Session
}

func NewAuthService(api API, s Session) *AuthService {
	return &AuthService{api: api, session: s}
}

// Register creates an account and starts a session for it.
func (a *AuthService) Register(ctx context.Context, email, username string, password []byte) (*models.User, error) {
	req := models.RegisterRequest{Email: email, Username: username, Password: string(password)}
	return a.authenticate(ctx, "/auth/register", req)
}

// Login starts a session for the given credentials.
func (a *AuthService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	req := models.LoginRequest{Email: email, Password: string(password)}
	return a.authenticate(ctx, "/auth/login", req)
}

func (a *AuthService) authenticate(ctx context.Context, path string, req any) (*models.User, error) {
	var res models.AuthResponse
	if _, err := a.api.Do(ctx, http.MethodPost, path, req, &res); err != nil {
		return nil, err
	}

	id := session.Identity{UserID: res.User.ID, Email: res.User.Email}
	if err := a.session.Start(ctx, id, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &res.User, nil
}

// Logout forgets the local session. Tokens stay valid on the server until
// they expire.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

// CurrentUser fetches the profile the session belongs to.
func (a *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if _, err := a.api.Do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Restore checks a session loaded from disk. It returns (nil, nil) when there
// is nothing to restore. A session the server no longer accepts is cleared.
// Any other failure, such as an unreachable server, leaves it untouched.
func (a *AuthService) Restore(ctx context.Context) (*models.User, error) {
	if !a.session.IsAuthenticated() {
		return nil, nil
	}

	u, err := a.CurrentUser(ctx)
	if err != nil {
		if !rejected(err) {
			return nil, err
		}
		if clearErr := a.session.Clear(ctx); clearErr != nil {
			return nil, errors.Join(err, clearErr)
		}
		return nil, err
	}
	return u, nil
}

// rejected reports whether err means the server refused the stored session,
// as opposed to the server being unreachable or failing.
func rejected(err error) bool {
	return errors.Is(err, client.ErrSessionExpired) ||
		errors.Is(err, client.ErrUnauthorized) ||
		errors.Is(err, client.ErrNotFound)
}
