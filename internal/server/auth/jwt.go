// Package auth issues and verifies the JWT pair handed to clients after
// register, login and refresh.
//
// Access and refresh tokens carry the same identity claims but are signed
// with different secrets, so one kind can never be accepted as the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the identity embedded in both token kinds.
type UserClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserClaims
}

type signer struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager mints and validates access/refresh tokens (HS256).
type TokenManager struct {
	access  signer
	refresh signer
	now     func() time.Time
}

type Option func(*TokenManager)

// WithClock replaces time.Now for both issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager fails when a secret is empty or both secrets are the same.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...Option) (*TokenManager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	m := &TokenManager{
		access:  signer{secret: []byte(accessSecret), ttl: accessTTL},
		refresh: signer{secret: []byte(refreshSecret), ttl: refreshTTL},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a new pair for claims.
func (m *TokenManager) Issue(claims UserClaims) (*TokenPair, error) {
	access, err := m.sign(m.access, claims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(m.refresh, claims)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token. Expired tokens yield
// common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (m *TokenManager) VerifyAccess(token string) (*UserClaims, error) {
	return m.verify(m.access, token)
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (m *TokenManager) VerifyRefresh(token string) (*UserClaims, error) {
	return m.verify(m.refresh, token)
}

func (m *TokenManager) sign(s signer, claims UserClaims) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserClaims: claims,
	})
	return token.SignedString(s.secret)
}

func (m *TokenManager) verify(s signer, tokenString string) (*UserClaims, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, common.ErrInvalidToken
	}

	return &claims.UserClaims, nil
}
