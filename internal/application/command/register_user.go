// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates an account with a hashed credential and a fresh progress snapshot.
// Token issuance is an external collaborator's job; this only stores the hash.
// ══════════════════════════════════════════════════════════════════════════════

const minPasswordLength = 8

// RegisterUserCommand contains the data to create an account.
type RegisterUserCommand struct {
	// Email is the login email. Normalized before storage.
	Email string

	// Username is the display name.
	Username string

	// Password is the plaintext credential. Never stored; hashed immediately.
	Password string

	// Avatar is an optional avatar URL.
	Avatar string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if _, err := shared.NewEmail(c.Email); err != nil {
		return err
	}
	if c.Username == "" {
		return errors.New("register_user: username is required")
	}
	if len(c.Password) < minPasswordLength {
		return fmt.Errorf("register_user: password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// RegisterUserResult contains the created account.
type RegisterUserResult struct {
	// UserID is the new internal ID.
	UserID shared.UserID

	// Email is the normalized email.
	Email shared.Email

	// Username is the display name.
	Username string

	// Progress is the fresh snapshot (level 1, zero XP).
	Progress user.ProgressSnapshot
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	userRepo       user.Repository
	eventPublisher shared.EventPublisher
	bcryptCost     int
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(userRepo user.Repository, eventPublisher shared.EventPublisher) *RegisterUserHandler {
	return &RegisterUserHandler{
		userRepo:       userRepo,
		eventPublisher: eventPublisher,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	if _, err := h.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, shared.ErrUserAlreadyExists
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("register_user: email lookup failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register_user: failed to hash password: %w", err)
	}

	u, err := user.NewUser(user.NewUserParams{
		ID:           shared.UserID(uuid.NewString()),
		Email:        email,
		Username:     cmd.Username,
		PasswordHash: string(hash),
		Avatar:       cmd.Avatar,
	})
	if err != nil {
		return nil, err
	}

	if err := h.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("register_user: failed to create user: %w", err)
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewUserRegisteredEvent(
			u.ID.String(), u.Email.String(), u.Username,
		))
	}

	return &RegisterUserResult{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Progress: u.Progress,
	}, nil
}
