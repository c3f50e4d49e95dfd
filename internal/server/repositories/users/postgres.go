package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"

	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

// PostgresRepository talks to the sp_* functions created by the server migrations.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT sp_email_exists($1)`, email)
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT sp_username_exists($1)`, username)
}

func (r *PostgresRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`SELECT id, email, username, created_at, updated_at
		 FROM sp_create_user($1, $2, $3)
		 `

	created := &models.User{PasswordHash: user.PasswordHash}
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Username, user.PasswordHash).
		Scan(&created.ID, &created.Email, &created.Username, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return created, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, username, password_hash, created_at, updated_at
		 FROM sp_get_user_by_email($1)
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, username, created_at, updated_at
		 FROM sp_get_user_by_id($1)
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) (*models.UserPage, error) {
	query :=
		`SELECT id, email, username, created_at, updated_at, total_count
		 FROM sp_get_all_users($1, $2)
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	page := &models.UserPage{Users: []*models.User{}}
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt, &u.UpdatedAt, &page.Total); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// the window count is absent when offset runs past the last row
	if len(page.Users) == 0 && offset > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&page.Total); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	return page, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	query :=
		`SELECT id, email, username, created_at, updated_at
		 FROM sp_update_user($1, $2, $3, $4)
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id, nullable(upd.Email), nullable(upd.Username), nullable(upd.PasswordHash)).
		Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	var deleted bool
	if err := r.db.QueryRowContext(ctx, `SELECT sp_delete_user($1)`, id).Scan(&deleted); err != nil {
		return mapError(err)
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// mapError turns driver errors into the common taxonomy.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case emailConstraint:
				return common.ErrEmailTaken
			case usernameConstraint:
				return common.ErrUsernameTaken
			default:
				return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
			}
		case pgInvalidTextRepresentation:
			// malformed uuid cannot match any row
			return common.ErrorNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}
