package database

import (
	"context"
	"errors"

	"chat-gateway/internal/models"
)

// ErrNotFound is returned when a lookup matches no user.
var ErrNotFound = errors.New("user not found")

// UserStore is the narrow persistence surface the auth service depends on.
// The gateway core never touches it; swapping the backing store must not
// require changes outside this package.
type UserStore interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	Close() error
}
