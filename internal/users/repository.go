package users

import (
	"context"
	"errors"

	"github.com/campushub/auth-service/internal/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnavailable wraps connectivity failures of the backing store.
	ErrUnavailable = errors.New("user directory unavailable")
)

// Repository defines persistence operations for users. Emails are stored
// normalized (trimmed, lower-case) by the Service before reaching a repository.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// Create assigns u.ID and u.RegistrationDate. Returns ErrEmailTaken on conflict.
	Create(ctx context.Context, u *models.User) error
	// UpdateFederated overwrites the federated fields of the user with email.
	UpdateFederated(ctx context.Context, email string, upd models.FederatedUpdate) (*models.User, error)
	UpdateStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error)
	Ping(ctx context.Context) error
}
