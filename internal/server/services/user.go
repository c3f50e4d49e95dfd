// Package services contains server-side business logic. This file implements
// UserService: registration, login and token refresh, plus the profile
// operations available to an authenticated user.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TokenIssuer is the part of auth.TokenManager the service depends on.
type TokenIssuer interface {
	Issue(claims auth.UserClaims) (*auth.TokenPair, error)
	VerifyRefresh(token string) (*auth.UserClaims, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// UserList is one page of users with pagination metadata.
type UserList struct {
	Users      []*models.User
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// UpdateUserInput holds optional profile changes. Nil or empty means keep.
type UpdateUserInput struct {
	Email    *string
	Username *string
	Password *string
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	hasher      cryptox.PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires the service. db may be nil for the in-memory manager.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer, hasher cryptox.PasswordHasher) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
	}
}

func (s *UserService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// Register creates an account and returns it with a fresh token pair.
// A taken email or username yields common.ErrEmailTaken / common.ErrUsernameTaken,
// whether it was caught by the pre-check or by the store's unique constraint.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	repo := s.users()

	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, common.ErrEmailTaken
	}

	exists, err = repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if exists {
		return nil, common.ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{Email: email, Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	user.PasswordHash = ""

	return s.authResult(user)
}

// Login checks the email/password pair. Unknown email and wrong password both
// yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// spend the same hashing time as for a real account
			s.hasher.Verify(password, s.getDummyHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	user.PasswordHash = ""

	return s.authResult(user)
}

// RefreshToken mints a new pair from the user's current record. The presented
// refresh token is not revoked and stays valid until it expires.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrRefreshTokenRequired
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	pair, err := s.tokens.Issue(claimsOf(user))
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}
	return pair, nil
}

// GetUser returns the user without its password hash.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

// ListUsers pages through all users, newest first. Non-positive page or
// limit fall back to the defaults; limit is capped at MaxLimit.
func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// keep (page-1)*limit inside int
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	res, err := s.users().List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	return &UserList{
		Users:      res.Users,
		Page:       page,
		Limit:      limit,
		Total:      res.Total,
		TotalPages: int((res.Total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdateUser changes the profile of id. Only the account owner may do so.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, in UpdateUserInput) (*models.User, error) {
	if actorID != id {
		return nil, common.ErrorForbidden
	}

	upd := models.UserUpdate{Email: nonEmpty(in.Email), Username: nonEmpty(in.Username)}
	if p := nonEmpty(in.Password); p != nil {
		hash, err := s.hasher.Hash(*p)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	user, err := s.users().Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the account id. Only the account owner may do so.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return common.ErrorForbidden
	}

	if err := s.users().Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}

// --- helpers below ---

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.Issue(claimsOf(user))
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func claimsOf(u *models.User) auth.UserClaims {
	return auth.UserClaims{UserID: u.ID, Email: u.Email, Username: u.Username}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
