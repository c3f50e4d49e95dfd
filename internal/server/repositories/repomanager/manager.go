// Package repomanager hands out repositories bound to a database handle and
// owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// MemoryDSN selects the in-process store instead of PostgreSQL.
const MemoryDSN = "memory://"

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open returns the manager matching dsn together with its connection pool.
// The in-memory manager has no pool and returns a nil *sql.DB.
func Open(dsn string) (RepositoryManager, *sql.DB, error) {
	if strings.HasPrefix(dsn, MemoryDSN) {
		return NewMemoryRepositoryManager(), nil, nil
	}

	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, db, nil
}
