package user

import (
	"context"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Repository defines the user store contract. Implementations live in
// infrastructure/persistence.
type Repository interface {
	// Create creates a new user.
	// Returns shared.ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by internal ID.
	// Returns shared.ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id shared.UserID) (*User, error)

	// GetByEmail returns a user by normalized email.
	// Returns shared.ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email shared.Email) (*User, error)

	// Update persists profile changes (username, avatar).
	// Returns shared.ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, u *User) error

	// GetSnapshot returns only the progress snapshot for a user.
	// Returns shared.ErrUserNotFound if the user does not exist.
	GetSnapshot(ctx context.Context, id shared.UserID) (ProgressSnapshot, error)

	// IncrementPlannersCreated atomically bumps the planner counter and
	// returns the updated snapshot.
	IncrementPlannersCreated(ctx context.Context, id shared.UserID) (ProgressSnapshot, error)
}
