package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// versionTable records applied migrations. It is kept apart from goose's
// default name so the schema can share a database with other services.
const versionTable = "gophauth_schema_version"

// PostgresRepositoryManager binds the Postgres user store to whatever handle
// the caller passes: the pool or an open transaction.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema: the users table and the sp_*
// functions the repository calls.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetTableName(versionTable)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	if db == nil {
		return nil, errors.New("postgres manager needs a connection pool")
	}
	return &PostgresRepositoryManager{}, nil
}
