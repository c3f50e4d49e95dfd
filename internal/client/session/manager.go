// Package session keeps the client's single login session: the access and
// refresh tokens plus the identity they were issued for. The in-memory copy
// is authoritative; every change is written through to the SQLite metadata
// table so the session survives restarts.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUserID       = "user_id"
	keyEmail        = "email"
)

var sessionKeys = []string{keyAccessToken, keyRefreshToken, keyUserID, keyEmail}

// Identity is who the session belongs to, as last reported by the server.
type Identity struct {
	UserID string
	Email  string
}

// Manager is safe for concurrent use. A nil db keeps the session in memory only.
type Manager struct {
	db *sql.DB

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	identity     Identity
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Load restores the persisted session, if any.
func (m *Manager) Load(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	values, err := metadata.NewSQLiteRepository(m.db).List(ctx)
	if err != nil {
		return fmt.Errorf("session load error: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = string(values[keyAccessToken])
	m.refreshToken = string(values[keyRefreshToken])
	m.identity = Identity{UserID: string(values[keyUserID]), Email: string(values[keyEmail])}
	return nil
}

// Start replaces the whole session after login or registration.
func (m *Manager) Start(ctx context.Context, id Identity, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, map[string]string{
		keyAccessToken:  accessToken,
		keyRefreshToken: refreshToken,
		keyUserID:       id.UserID,
		keyEmail:        id.Email,
	}); err != nil {
		return err
	}

	m.accessToken, m.refreshToken, m.identity = accessToken, refreshToken, id
	return nil
}

// SetTokens overwrites the token pair and keeps the identity.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, map[string]string{
		keyAccessToken:  accessToken,
		keyRefreshToken: refreshToken,
	}); err != nil {
		return err
	}

	m.accessToken, m.refreshToken = accessToken, refreshToken
	return nil
}

// Clear forgets the session. The in-memory copy is dropped even when the
// database write fails.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accessToken, m.refreshToken, m.identity = "", "", Identity{}

	if m.db == nil {
		return nil
	}
	if err := metadata.NewSQLiteRepository(m.db).Delete(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("session clear error: %w", err)
	}
	return nil
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken
}

func (m *Manager) Identity() Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// IsAuthenticated reports whether an access token is held. The token may
// still be expired; the server decides.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken != ""
}

// persist writes values in one transaction. Callers hold m.mu.
func (m *Manager) persist(ctx context.Context, values map[string]string) error {
	if m.db == nil {
		return nil
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for k, v := range values {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session save error: %w", err)
	}
	return nil
}
