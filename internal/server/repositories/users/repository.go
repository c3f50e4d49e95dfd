// Package users stores user identities. Email and username uniqueness is
// enforced by the store itself; a duplicate insert or update fails with
// common.ErrEmailTaken or common.ErrUsernameTaken.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create stores the user and returns it with ID and timestamps filled in.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// FindByEmail is the only lookup that returns PasswordHash.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) (*models.UserPage, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
